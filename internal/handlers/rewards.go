package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blood-platform/internal/models"
	"blood-platform/internal/response"
	"blood-platform/internal/service"
)

type RewardHandler struct {
	Ledger *service.Ledger
}

func NewRewardHandler(ledger *service.Ledger) *RewardHandler {
	return &RewardHandler{Ledger: ledger}
}

type RedeemRequest struct {
	RewardID string `json:"rewardId" binding:"required"`
}

type redeemResponse struct {
	Transaction *models.RewardTransaction `json:"transaction"`
	Message     string                    `json:"message"`
}

func (h *RewardHandler) List(c *gin.Context) {
	rewards, err := h.Ledger.ListRewards(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, rewards)
}

func (h *RewardHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reward, err := h.Ledger.GetReward(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, reward)
}

// Mine returns the caller's balance and recent redemptions.
func (h *RewardHandler) Mine(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rewards, err := h.Ledger.GetUserRewards(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, rewards)
}

func (h *RewardHandler) Redeem(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req RedeemRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}
	rewardID, err := parseUUID(req.RewardID, "rewardId")
	if err != nil {
		response.Error(c, err)
		return
	}

	txn, err := h.Ledger.RedeemReward(c.Request.Context(), userID, rewardID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, redeemResponse{
		Transaction: txn,
		Message:     "Reward redeemed. Show the code " + txn.RedemptionCode + " at the partner.",
	})
}

func (h *RewardHandler) Cancel(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	txn, err := h.Ledger.CancelRewardTransaction(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, txn)
}

// MarkRedeemed is the staff endpoint for handing a reward over.
func (h *RewardHandler) MarkRedeemed(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	txn, err := h.Ledger.MarkRedeemed(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, txn)
}
