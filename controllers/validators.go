package controllers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/cppla/discourse/board"
)

var registerOnce sync.Once

// RegisterValidators adds the board's binding rules to gin's validator:
// category, filter_category, sort_mode and theme.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return board.IsCategory(fl.Field().String())
		})
		_ = v.RegisterValidation("filter_category", func(fl validator.FieldLevel) bool {
			return board.IsFilterCategory(fl.Field().String())
		})
		_ = v.RegisterValidation("sort_mode", func(fl validator.FieldLevel) bool {
			_, err := board.ParseSortMode(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
			_, err := board.ParseTheme(fl.Field().String())
			return err == nil
		})
	})
}

// bindingMessage names the first failed rule of a binding error.
func bindingMessage(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		switch fe.Tag() {
		case "category", "filter_category":
			return "unknown category"
		case "sort_mode":
			return "unknown sort mode"
		case "theme":
			return "unknown theme"
		case "required":
			return fe.Field() + " is required"
		case "oneof":
			return fe.Field() + " must be one of " + fe.Param()
		}
		return fe.Field() + " is invalid"
	}
	return "invalid request payload"
}
