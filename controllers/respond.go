package controllers

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/Nishaa1304/GlucoSage/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP statuses: caller
// mistakes are 4xx, broken reference data is 500, failed collaborators 502.
func respondError(c *gin.Context, err error) {
	switch {
	case utils.IsInputError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case utils.IsUpstreamError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case utils.IsDataIntegrityError(err):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// decodeBase64Image accepts both a bare base64 string and a
// "data:image/jpeg;base64,..." URI.
func decodeBase64Image(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if idx := strings.Index(s, ","); idx != -1 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, utils.NewInputError("invalid base64 image: %v", err)
	}
	return data, nil
}

func atoiPositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
