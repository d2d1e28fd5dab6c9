package errors

import (
	"fmt"
	"net/http"
)

// Code 错误码定义（业务码 + HTTP 状态 + 提示信息）
type Code struct {
	Code    int
	Status  int
	Message string
}

// 各模块错误码区间
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Auth errors (2000-2999)
	ErrAuthInvalidCredentials = 2000
	ErrAuthUserNotFound       = 2001
	ErrAuthAccountDisabled    = 2002
	ErrAuthInvalidToken       = 2003
	ErrAuthTokenExpired       = 2004
	ErrAuthNoPermission       = 2005

	// Admin user errors (3000-3999)
	ErrUserNotFound     = 3000
	ErrUserExists       = 3001
	ErrUserInvalidInput = 3002
	ErrUserSelfDelete   = 3003

	// Registration errors (4000-4999)
	ErrRegNotFound         = 4000
	ErrRegInvalidInput     = 4001
	ErrRegInvalidStatus    = 4002
	ErrRegWrongPredecessor = 4003
	ErrRegFeishuUnavail    = 4004

	// Email errors (5000-5999)
	ErrEmailCredNotFound    = 5000
	ErrEmailCredInvalid     = 5001
	ErrEmailNoCredentials   = 5002
	ErrEmailAllExhausted    = 5003
	ErrEmailNotConfigured   = 5004
	ErrEmailNoRecipients    = 5005
	ErrEmailInvalidBulkKind = 5006

	// Settings errors (6000-6999)
	ErrSettingNotFound = 6000
	ErrSettingInvalid  = 6001

	// Blog sync errors (7000-7999)
	ErrBlogFeedUnavail = 7000
	ErrBlogHaloUnavail = 7001
	ErrBlogSyncRunning = 7002

	// Upload errors (8000-8999)
	ErrUploadNotFound = 8000
	ErrUploadTooLarge = 8001
	ErrUploadBadType  = 8002
	ErrUploadStorage  = 8003
)

var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	ErrAuthInvalidCredentials: {ErrAuthInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	ErrAuthUserNotFound:       {ErrAuthUserNotFound, http.StatusUnauthorized, "Invalid username or password"},
	ErrAuthAccountDisabled:    {ErrAuthAccountDisabled, http.StatusForbidden, "Account disabled"},
	ErrAuthInvalidToken:       {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid token"},
	ErrAuthTokenExpired:       {ErrAuthTokenExpired, http.StatusUnauthorized, "Token expired"},
	ErrAuthNoPermission:       {ErrAuthNoPermission, http.StatusForbidden, "Insufficient permissions"},

	ErrUserNotFound:     {ErrUserNotFound, http.StatusNotFound, "User not found"},
	ErrUserExists:       {ErrUserExists, http.StatusConflict, "Username already exists"},
	ErrUserInvalidInput: {ErrUserInvalidInput, http.StatusBadRequest, "Invalid user input"},
	ErrUserSelfDelete:   {ErrUserSelfDelete, http.StatusBadRequest, "Cannot delete current account"},

	ErrRegNotFound:         {ErrRegNotFound, http.StatusNotFound, "Registration not found"},
	ErrRegInvalidInput:     {ErrRegInvalidInput, http.StatusBadRequest, "Invalid registration input"},
	ErrRegInvalidStatus:    {ErrRegInvalidStatus, http.StatusBadRequest, "Unknown registration status"},
	ErrRegWrongPredecessor: {ErrRegWrongPredecessor, http.StatusConflict, "Registration is not in the required review stage"},
	ErrRegFeishuUnavail:    {ErrRegFeishuUnavail, http.StatusBadGateway, "Registration store unavailable"},

	ErrEmailCredNotFound:    {ErrEmailCredNotFound, http.StatusNotFound, "SMTP credential not found"},
	ErrEmailCredInvalid:     {ErrEmailCredInvalid, http.StatusBadRequest, "Invalid SMTP credential"},
	ErrEmailNoCredentials:   {ErrEmailNoCredentials, http.StatusServiceUnavailable, "No active SMTP credentials"},
	ErrEmailAllExhausted:    {ErrEmailAllExhausted, http.StatusBadGateway, "All SMTP credentials exhausted"},
	ErrEmailNotConfigured:   {ErrEmailNotConfigured, http.StatusServiceUnavailable, "Email delivery not configured"},
	ErrEmailNoRecipients:    {ErrEmailNoRecipients, http.StatusBadRequest, "No eligible recipients"},
	ErrEmailInvalidBulkKind: {ErrEmailInvalidBulkKind, http.StatusBadRequest, "Unknown bulk email kind"},

	ErrSettingNotFound: {ErrSettingNotFound, http.StatusNotFound, "Setting not found"},
	ErrSettingInvalid:  {ErrSettingInvalid, http.StatusBadRequest, "Invalid setting"},

	ErrBlogFeedUnavail: {ErrBlogFeedUnavail, http.StatusBadGateway, "RSS feed unavailable"},
	ErrBlogHaloUnavail: {ErrBlogHaloUnavail, http.StatusBadGateway, "Blog service unavailable"},
	ErrBlogSyncRunning: {ErrBlogSyncRunning, http.StatusConflict, "Blog sync already running"},

	ErrUploadNotFound: {ErrUploadNotFound, http.StatusNotFound, "Upload not found"},
	ErrUploadTooLarge: {ErrUploadTooLarge, http.StatusBadRequest, "File too large"},
	ErrUploadBadType:  {ErrUploadBadType, http.StatusBadRequest, "Unsupported file type"},
	ErrUploadStorage:  {ErrUploadStorage, http.StatusBadGateway, "Object storage unavailable"},
}

// GetMessage 获取错误码对应的提示信息
func GetMessage(code int) string {
	if c, ok := codeMap[code]; ok {
		return c.Message
	}
	return "Unknown error"
}

// GetHTTPStatus 获取错误码对应的 HTTP 状态码
func GetHTTPStatus(code int) int {
	if c, ok := codeMap[code]; ok {
		return c.Status
	}
	return http.StatusInternalServerError
}

// FormatError 格式化错误提示（附加详情）
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
