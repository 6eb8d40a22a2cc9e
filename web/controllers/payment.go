package controllers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-checkout/gateway"
	"go-checkout/order"
	"go-checkout/store"
	"go-checkout/web/middleware"
)

type PaymentController struct {
	Orders        *order.Manager
	Logger        *zap.SugaredLogger
	PublicBaseURL string
}

type createRequest struct {
	Amount            int64  `json:"amount"` // minor units
	OrderName         string `json:"order_name"`
	OrderKind         string `json:"order_kind"`
	RelatedEntityType string `json:"related_entity_type"`
	RelatedEntityID   string `json:"related_entity_id"`
	Metadata          string `json:"metadata"`
}

type guestCreateRequest struct {
	createRequest
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`

	// never accepted on the guest path; bound only so it can be rejected
	IdentityRef string `json:"identity_ref"`
}

func (req createRequest) input() order.CreateInput {
	return order.CreateInput{
		OrderName:         req.OrderName,
		OrderKind:         store.OrderKind(req.OrderKind),
		Amount:            req.Amount,
		RelatedEntityType: req.RelatedEntityType,
		RelatedEntityID:   req.RelatedEntityID,
		Metadata:          req.Metadata,
	}
}

// CreatePayment opens an order for the authenticated caller and launches the
// hosted checkout. The response carries the URL the browser must leave
// through; confirmation comes back later via the callback route.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	identity, ok := c.Get(middleware.IdentityKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	created, err := pc.Orders.CreateOrder(c.Request.Context(), identity.(string), req.input())
	if err != nil {
		pc.respondCreateError(c, err)
		return
	}

	pc.launch(c, created)
}

// CreateGuestPayment is the privilege-elevated guest path. It accepts only
// the guest owner shape and rejects any attempt to smuggle in an identity.
func (pc *PaymentController) CreateGuestPayment(c *gin.Context) {
	var req guestCreateRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.IdentityRef != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Guest orders cannot carry an identity"})
		return
	}

	created, err := pc.Orders.CreateGuestOrder(c.Request.Context(), req.GuestName, req.GuestEmail, req.input())
	if err != nil {
		pc.respondCreateError(c, err)
		return
	}

	pc.launch(c, created)
}

func (pc *PaymentController) respondCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrInvalidOwner):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order owner"})
	case errors.Is(err, order.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
	default:
		pc.Logger.Errorw("failed to create order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
	}
}

func (pc *PaymentController) launch(c *gin.Context, created *store.Order) {
	successURL := fmt.Sprintf("%s/payment/callback?order_id=%s&result=success", pc.PublicBaseURL, url.QueryEscape(created.ID))
	failureURL := fmt.Sprintf("%s/payment/callback?order_id=%s&result=failure", pc.PublicBaseURL, url.QueryEscape(created.ID))

	launch, err := pc.Orders.LaunchCheckout(c.Request.Context(), created.ID, successURL, failureURL)
	if err != nil {
		if errors.Is(err, gateway.ErrUserAborted) {
			// not an error for the user; the order was cancelled for them
			c.JSON(http.StatusOK, gin.H{"status": "cancelled", "order_id": created.ID})
			return
		}
		pc.Logger.Errorw("checkout launch failed", "order_id", created.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to start checkout", "order_id": created.ID})
		return
	}

	resp := gin.H{
		"order_id":          created.ID,
		"external_order_id": created.ExternalOrderID,
		"amount":            created.Amount,
		"currency":          created.Currency,
		"checkout_url":      launch.CheckoutURL,
	}
	if len(launch.QRCodePNG) > 0 {
		resp["checkout_qr"] = base64.StdEncoding.EncodeToString(launch.QRCodePNG)
	}
	c.JSON(http.StatusOK, resp)
}

// Callback is where the gateway redirect re-enters the system. Nothing in the
// URL is trusted beyond routing: the order is re-read from the store and the
// amount parameter is only compared against it.
func (pc *PaymentController) Callback(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order_id"})
		return
	}

	if c.Query("result") != "success" {
		pc.failureCallback(c, orderID)
		return
	}

	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}
	transactionKey := c.Query("tx_key")

	// a retried redirect replays the same URL, so this key dedupes on the
	// gateway side as well
	idempotencyKey := fmt.Sprintf("confirm-%s-%s", orderID, transactionKey)

	result, err := pc.Orders.ConfirmOrder(c.Request.Context(), orderID, transactionKey, amount, idempotencyKey)
	if err != nil {
		var mismatch *order.AmountMismatchError
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.As(err, &mismatch):
			pc.Logger.Warnw("callback amount mismatch", "order_id", orderID)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount mismatch"})
		default:
			pc.Logger.Errorw("confirm failed", "order_id", orderID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment confirmation failed"})
		}
		return
	}

	if !result.Approved {
		c.JSON(http.StatusOK, gin.H{"status": "failed", "decline_code": result.DeclineCode})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed", "order_id": orderID})
}

func (pc *PaymentController) failureCallback(c *gin.Context, orderID string) {
	reason := c.Query("reason")

	outcome := pc.Orders.CancelOrder(c.Request.Context(), orderID, "gateway failure callback: "+reason)

	if reason == "aborted" {
		// the user simply walked away; nothing to report as an error
		c.JSON(http.StatusOK, gin.H{"status": "cancelled", "order_id": orderID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(outcome.Status), "order_id": orderID, "reason": reason})
}

// CancelPayment abandons the caller's own pending order. Best-effort by
// contract: the response is always a plain outcome, never an error status
// caused by cleanup.
func (pc *PaymentController) CancelPayment(c *gin.Context) {
	identity, ok := c.Get(middleware.IdentityKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	orderID := c.Param("order_id")

	stored, err := pc.Orders.GetOrder(c.Request.Context(), orderID)
	if err != nil || stored.IdentityRef != identity.(string) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	outcome := pc.Orders.CancelOrder(c.Request.Context(), orderID, "cancelled by user")
	c.JSON(http.StatusOK, gin.H{"changed": outcome.Changed, "status": string(outcome.Status)})
}

// PendingPayment surfaces the most recent unresolved order for the caller,
// checked when the app regains the foreground. 204 when there is nothing to
// resume.
func (pc *PaymentController) PendingPayment(c *gin.Context) {
	identity, ok := c.Get(middleware.IdentityKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	owner, err := order.IdentityOwner(identity.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner"})
		return
	}

	pc.scanPending(c, owner)
}

// GuestPendingPayment is the guest variant of the recovery scan, keyed by the
// contact pair instead of an identity.
func (pc *PaymentController) GuestPendingPayment(c *gin.Context) {
	owner, err := order.GuestOwner(c.Query("guest_name"), c.Query("guest_email"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner"})
		return
	}

	pc.scanPending(c, owner)
}

func (pc *PaymentController) scanPending(c *gin.Context, owner order.Owner) {
	pending, err := pc.Orders.ScanPendingOrder(c.Request.Context(), owner)
	if err != nil {
		pc.Logger.Errorw("pending scan failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan pending orders"})
		return
	}
	if pending == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": pending})
}

func (pc *PaymentController) GetPaymentStatus(c *gin.Context) {
	identity, ok := c.Get(middleware.IdentityKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	orderID := c.Param("order_id")

	stored, err := pc.Orders.GetOrder(c.Request.Context(), orderID)
	if err != nil || stored.IdentityRef != identity.(string) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":            stored.ID,
		"status":              string(stored.Status),
		"gateway_payment_ref": stored.GatewayPaymentRef,
	})
}

// CompletePayment records business fulfillment of a confirmed order.
// Admin-only: fulfillment acknowledgement comes from the backoffice, not the
// buyer.
func (pc *PaymentController) CompletePayment(c *gin.Context) {
	orderID := c.Param("order_id")
	if err := pc.Orders.CompleteOrder(c.Request.Context(), orderID); err != nil {
		pc.Logger.Errorw("complete failed", "order_id", orderID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": orderID})
}

// RefundPayment compensates a confirmed order. Distinct from cancel: a plain
// cancel never touches an order that has money behind it.
func (pc *PaymentController) RefundPayment(c *gin.Context) {
	orderID := c.Param("order_id")

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := pc.Orders.RefundOrder(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		pc.Logger.Errorw("refund failed", "order_id", orderID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Refund failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "voided": result.Voided})
}
