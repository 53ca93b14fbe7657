package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

const ActiveUserKey = "user"

func GetActiveUser(ctx *gin.Context) (TokenObject, error) {
	value, exists := ctx.Get(ActiveUserKey)
	if !exists {
		return TokenObject{}, fmt.Errorf("not authorized to access this resource")
	}

	user, ok := value.(TokenObject)
	if !ok {
		return TokenObject{}, fmt.Errorf("active user has an unexpected type %T", value)
	}

	return user, nil
}
