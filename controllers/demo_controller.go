package controllers

import (
	"log"
	"net/http"

	"github.com/Nishaa1304/GlucoSage/services"
	"github.com/Nishaa1304/GlucoSage/utils"

	"github.com/gin-gonic/gin"
)

type DemoController struct {
	Mapper *services.DemoMapper
}

func NewDemoController(mapper *services.DemoMapper) *DemoController {
	return &DemoController{Mapper: mapper}
}

// POST /api/v1/demo/detect
// Exact-hash lookup only; a miss is a normal 404, not an error.
func (dc *DemoController) Detect(c *gin.Context) {
	var req struct {
		ImageBase64 string `json:"image_base64" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	imageBytes, err := decodeBase64Image(req.ImageBase64)
	if err != nil {
		respondError(c, err)
		return
	}

	match, ok, err := dc.Mapper.Lookup(imageBytes)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"match": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": true, "result": match})
}

// POST /api/v1/demo/register
// Registers an image with its curated record, and archives the original
// bytes to S3 when the store is configured.
func (dc *DemoController) Register(c *gin.Context) {
	var req struct {
		ImageBase64 string              `json:"image_base64" binding:"required"`
		Record      services.DemoRecord `json:"record" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	imageBytes, err := decodeBase64Image(req.ImageBase64)
	if err != nil {
		respondError(c, err)
		return
	}

	hash, err := dc.Mapper.Register(imageBytes, req.Record)
	if err != nil {
		respondError(c, err)
		return
	}

	var archiveKey string
	if utils.S3Enabled() {
		archiveKey, err = utils.UploadDemoImage(c.Request.Context(), imageBytes, hash)
		if err != nil {
			// Registration already succeeded; the archive is best effort.
			log.Printf("warning: demo image archive failed: %v", err)
			archiveKey = ""
		}
	}

	resp := gin.H{"hash": hash, "total_mappings": dc.Mapper.Count()}
	if archiveKey != "" {
		resp["archive_key"] = archiveKey
	}
	c.JSON(http.StatusCreated, resp)
}

// GET /api/v1/demo/foods
func (dc *DemoController) ListFoods(c *gin.Context) {
	foods := dc.Mapper.ListFoods()
	c.JSON(http.StatusOK, gin.H{"foods": foods, "count": len(foods)})
}
