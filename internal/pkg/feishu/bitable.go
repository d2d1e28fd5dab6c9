package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// Record 多维表格中的一条记录
type Record struct {
	RecordID    string
	CreatedTime int64 // 毫秒时间戳
	Fields      map[string]interface{}
}

// ListOptions 记录列表查询参数
type ListOptions struct {
	PageSize  int
	PageToken string
	Filter    string // 飞书过滤表达式，如 CurrentValue.[状态]="pending"
}

// ListPage 一页记录
type ListPage struct {
	Items     []*Record
	HasMore   bool
	PageToken string
	Total     int
}

// Field 表格字段定义
type Field struct {
	FieldID string
	Name    string
	Type    int64
}

func (c *Client) recordsPath() string {
	return fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s/records", c.cfg.AppToken, c.cfg.TableID)
}

func parseRecord(r gjson.Result) *Record {
	fields := map[string]interface{}{}
	r.Get("fields").ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value.Value()
		return true
	})
	return &Record{
		RecordID:    r.Get("record_id").String(),
		CreatedTime: r.Get("created_time").Int(),
		Fields:      fields,
	}
}

// CreateRecord 创建记录，返回记录 ID 与创建时间
func (c *Client) CreateRecord(ctx context.Context, fields map[string]interface{}) (*Record, error) {
	payload, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return nil, err
	}

	body, err := c.request(ctx, http.MethodPost, c.recordsPath(), payload)
	if err != nil {
		return nil, err
	}

	return parseRecord(gjson.GetBytes(body, "data.record")), nil
}

// GetRecord 按记录 ID 查询
func (c *Client) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	body, err := c.request(ctx, http.MethodGet, c.recordsPath()+"/"+recordID, nil)
	if err != nil {
		return nil, err
	}

	record := gjson.GetBytes(body, "data.record")
	if !record.Exists() {
		return nil, fmt.Errorf("record %s not found", recordID)
	}
	return parseRecord(record), nil
}

// UpdateRecord 部分更新记录字段
func (c *Client) UpdateRecord(ctx context.Context, recordID string, fields map[string]interface{}) (*Record, error) {
	payload, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return nil, err
	}

	body, err := c.request(ctx, http.MethodPut, c.recordsPath()+"/"+recordID, payload)
	if err != nil {
		return nil, err
	}

	return parseRecord(gjson.GetBytes(body, "data.record")), nil
}

// ListRecords 分页查询记录
func (c *Client) ListRecords(ctx context.Context, opts ListOptions) (*ListPage, error) {
	q := url.Values{}
	if opts.PageSize > 0 {
		q.Set("page_size", fmt.Sprintf("%d", opts.PageSize))
	}
	if opts.PageToken != "" {
		q.Set("page_token", opts.PageToken)
	}
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}

	path := c.recordsPath()
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	data := gjson.GetBytes(body, "data")
	page := &ListPage{
		HasMore:   data.Get("has_more").Bool(),
		PageToken: data.Get("page_token").String(),
		Total:     int(data.Get("total").Int()),
	}
	data.Get("items").ForEach(func(_, item gjson.Result) bool {
		page.Items = append(page.Items, parseRecord(item))
		return true
	})

	return page, nil
}

// ListFields 查询表格字段定义（管理端字段管理用）
func (c *Client) ListFields(ctx context.Context) ([]*Field, error) {
	path := fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s/fields", c.cfg.AppToken, c.cfg.TableID)
	body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var fields []*Field
	gjson.GetBytes(body, "data.items").ForEach(func(_, item gjson.Result) bool {
		fields = append(fields, &Field{
			FieldID: item.Get("field_id").String(),
			Name:    item.Get("field_name").String(),
			Type:    item.Get("type").Int(),
		})
		return true
	})

	return fields, nil
}
