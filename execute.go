package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/service"
	"github.com/Eursukkul/booking-microservice/payment-service/pkg/logging"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	execBookingID     int64
	execAction        string
	execAmount        string
	execPaymentMethod string
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run one payment action for a booking and print the result",
	Long: `Run one payment action and print the JSON result.

Examples:
  payment-service execute --booking-id 42 --action authorize
  payment-service execute --booking-id 42 --action charge --amount 20.00`,
	RunE: runExecute,
}

func init() {
	executeCmd.Flags().Int64Var(&execBookingID, "booking-id", 0, "booking id (required)")
	executeCmd.Flags().StringVar(&execAction, "action", "", "authorize, charge or retry (required)")
	executeCmd.Flags().StringVar(&execAmount, "amount", "", "amount in major units; defaults to the booking total")
	executeCmd.Flags().StringVar(&execPaymentMethod, "payment-method", "", "payment method token or vault id")
	_ = executeCmd.MarkFlagRequired("booking-id")
	_ = executeCmd.MarkFlagRequired("action")
}

func runExecute(cmd *cobra.Command, args []string) error {
	action := models.PaymentAction(execAction)
	if !action.Valid() {
		return service.ErrUnknownAction
	}

	req := service.PaymentActionRequest{
		BookingID:       execBookingID,
		Action:          action,
		PaymentMethodID: execPaymentMethod,
	}
	if execAmount != "" {
		amount, err := decimal.NewFromString(execAmount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", execAmount, err)
		}
		req.Amount = &amount
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := logging.ContextWithLogger(cmd.Context(), a.logger)
	res := a.svc.ExecutePaymentAction(ctx, req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(dto.ToPaymentActionResponse(res))
}
