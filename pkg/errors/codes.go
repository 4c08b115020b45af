package errors

// 공통 에러 코드 정의
const (
	// 일반적인 에러 코드
	ErrInternal           = "INTERNAL"
	ErrNotFound           = "NOT_FOUND"
	ErrInvalidArgument    = "INVALID_ARGUMENT"
	ErrUnauthenticated    = "UNAUTHENTICATED"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrConflict           = "CONFLICT"
	ErrTimeout            = "TIMEOUT"
	ErrNotImplemented     = "NOT_IMPLEMENTED"
	ErrResourceExhausted  = "RESOURCE_EXHAUSTED"
	ErrFailedPrecondition = "FAILED_PRECONDITION"
)

// 에러 코드와 HTTP 상태 코드 매핑 테이블
var httpStatusMapping = map[string]int{
	ErrInternal:           500,
	ErrNotFound:           404,
	ErrInvalidArgument:    400,
	ErrUnauthenticated:    401,
	ErrUnauthorized:       403,
	ErrConflict:           409,
	ErrTimeout:            504,
	ErrNotImplemented:     501,
	ErrResourceExhausted:  409,
	ErrFailedPrecondition: 422,
}

// GetHTTPStatus는 에러 코드에 대한 HTTP 상태 코드를 반환합니다
func GetHTTPStatus(code string) int {
	if status, ok := httpStatusMapping[code]; ok {
		return status
	}
	return 500 // 기본값으로 Internal Server Error
}
