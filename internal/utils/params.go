package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

func GetRuleID(ctx *gin.Context) (uint64, error) {
	ruleIDStr := ctx.Param("rule_id")

	if ruleIDStr == "" {
		return 0, errors.New("rule ID not found")
	}

	ruleID, err := strconv.ParseUint(ruleIDStr, 10, 32)

	if err != nil {
		return 0, errors.New("invalid rule ID")
	}

	return ruleID, nil
}

func GetNotificationID(ctx *gin.Context) (uint64, error) {
	idStr := ctx.Param("notification_id")

	if idStr == "" {
		return 0, errors.New("notification ID not found")
	}

	id, err := strconv.ParseUint(idStr, 10, 32)

	if err != nil {
		return 0, errors.New("invalid notification ID")
	}

	return id, nil
}
