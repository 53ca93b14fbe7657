package api

import (
	"errors"
	"fmt"
	"sync"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("walletid", validWalletID)
			_ = v.RegisterValidation("money", validMoney)
		}
	})
}

var validWalletID validator.Func = func(fl validator.FieldLevel) bool {
	return utils.IsWalletID(fl.Field().String())
}

var validMoney validator.Func = func(fl validator.FieldLevel) bool {
	_, err := domain.ParseAmount(fl.Field().String())
	return err == nil
}

// validationDetails flattens binding errors into "field: rule" strings.
// The bool reports whether an amount failed the money rule.
func validationDetails(err error) ([]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}, false
	}
	details := make([]string, 0, len(verrs))
	money := false
	for _, fe := range verrs {
		if fe.Tag() == "money" {
			money = true
		}
		details = append(details, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return details, money
}
