package response

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/casegen/pkg/utils/errors"
)

// ContextKeyRequestID is the gin context key holding the request ID.
const ContextKeyRequestID = "request_id"

// OK writes a success envelope carrying data.
func OK(c *gin.Context, data any) {
	resp := Success(data).WithRequestID(c.GetString(ContextKeyRequestID))
	c.JSON(resp.HTTPStatus(), resp)
}

// Fail writes the error envelope for err and aborts the handler chain.
// Errors that are not an *errors.Errno are reported as ErrInternal.
func Fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	resp := Err(e).WithRequestID(c.GetString(ContextKeyRequestID))
	c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
}

// FailWithData is Fail with a payload attached to the envelope.
func FailWithData(c *gin.Context, err error, data any) {
	e := errors.FromError(err)
	resp := ErrorWithData(e, data).WithRequestID(c.GetString(ContextKeyRequestID))
	c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
}
