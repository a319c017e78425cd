package controllers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yeremiapane/restaurant-tableorder/models"
)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("table_type", func(fl validator.FieldLevel) bool {
		return models.TableType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("session_status", func(fl validator.FieldLevel) bool {
		return models.SessionStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("item_status", func(fl validator.FieldLevel) bool {
		return models.ItemStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return models.PaymentMethod(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("payment_decision", func(fl validator.FieldLevel) bool {
		s := models.PaymentStatus(fl.Field().String())
		return s == models.PaymentSuccess || s == models.PaymentFailed
	})
}
