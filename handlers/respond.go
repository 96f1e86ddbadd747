package handlers

import (
	"github.com/gin-gonic/gin"
)

// errorBody builds the failure body. detail is attached only when showDetail
// is set, so release builds do not leak driver messages.
func errorBody(message string, err error, showDetail bool) gin.H {
	body := gin.H{"success": false, "error": message}
	if showDetail && err != nil {
		body["details"] = err.Error()
	}
	return body
}
