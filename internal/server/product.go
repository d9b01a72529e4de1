package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	productdomain "github.com/smallbiznis/gymdesk/internal/product/domain"
)

type productRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock *int            `json:"stock"`
}

type adjustStockRequest struct {
	Stock *int `json:"stock"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	stock := 0
	if req.Stock != nil {
		stock = *req.Stock
	}
	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateRequest{
		Name:  req.Name,
		Price: req.Price,
		Stock: stock,
		Actor: actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Stock == nil {
		AbortWithError(c, newValidationError("stock", "required", "stock is required"))
		return
	}

	resp, err := s.productSvc.Update(c.Request.Context(), productdomain.UpdateRequest{
		ID:    c.Param("id"),
		Name:  req.Name,
		Price: req.Price,
		Stock: *req.Stock,
		Actor: actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Stock == nil {
		AbortWithError(c, newValidationError("stock", "required", "stock is required"))
		return
	}

	resp, err := s.productSvc.AdjustStock(c.Request.Context(), productdomain.AdjustStockRequest{
		ID:    c.Param("id"),
		Stock: *req.Stock,
		Actor: actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProduct(c *gin.Context) {
	err := s.productSvc.Delete(c.Request.Context(), productdomain.DeleteRequest{
		ID:    c.Param("id"),
		Actor: actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) SearchProducts(c *gin.Context) {
	resp, err := s.productSvc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProduct(c *gin.Context) {
	resp, err := s.productSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLowStock(c *gin.Context) {
	threshold, err := parseOptionalInt(c.Query("threshold"))
	if err != nil {
		AbortWithError(c, newValidationError("threshold", "invalid_threshold", "threshold must be an integer"))
		return
	}
	limit := 0
	if threshold != nil {
		limit = *threshold
	}

	resp, err := s.productSvc.LowStock(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOutOfStock(c *gin.Context) {
	resp, err := s.productSvc.OutOfStock(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) InventorySummary(c *gin.Context) {
	resp, err := s.productSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
