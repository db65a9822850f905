package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// OK is the success pseudo-error used by response envelopes.
var OK = &Errno{Code: 0, HTTP: http.StatusOK, GRPCCode: codes.OK, MessageEN: "OK", MessageZH: "成功"}

var (
	ErrInvalidParam    = Register(New(MakeCode(ServiceCommon, CategoryRequest, 0), http.StatusBadRequest, codes.InvalidArgument, "Invalid parameter", "参数错误"))
	ErrBind            = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument, "Failed to bind request", "请求绑定失败"))
	ErrRequestTooLarge = Register(New(MakeCode(ServiceCommon, CategoryRequest, 2), http.StatusRequestEntityTooLarge, codes.InvalidArgument, "Request entity too large", "请求体过大"))
	ErrNotFound        = Register(New(MakeCode(ServiceCommon, CategoryResource, 0), http.StatusNotFound, codes.NotFound, "Resource not found", "资源不存在"))
	ErrRouteNotFound   = Register(New(MakeCode(ServiceCommon, CategoryResource, 1), http.StatusNotFound, codes.NotFound, "Route not found", "路由不存在"))
	ErrInternal        = Register(New(MakeCode(ServiceCommon, CategoryInternal, 0), http.StatusInternalServerError, codes.Internal, "Internal server error", "服务器内部错误"))
	ErrPanic           = Register(New(MakeCode(ServiceCommon, CategoryInternal, 2), http.StatusInternalServerError, codes.Internal, "Service panic", "服务崩溃"))
	ErrRequestTimeout  = Register(New(MakeCode(ServiceCommon, CategoryTimeout, 0), http.StatusGatewayTimeout, codes.DeadlineExceeded, "Request timeout", "请求超时"))
	ErrConfigInvalid   = Register(New(MakeCode(ServiceCommon, CategoryConfig, 0), http.StatusInternalServerError, codes.FailedPrecondition, "Invalid configuration", "配置无效"))
)
