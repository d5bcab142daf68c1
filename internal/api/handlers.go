package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rakib/go-commerce-store/internal/models"
	"github.com/rakib/go-commerce-store/internal/store"
	"github.com/shopspring/decimal"
)

// Request DTOs. Shape validation happens here through binding tags; the
// store layer only checks business invariants (stock, uniqueness).

type variantItemReq struct {
	Value        string  `json:"value" binding:"required"`
	Price        float64 `json:"price" binding:"required,gt=0"`
	SellingPrice float64 `json:"selling_price" binding:"required,gt=0"`
	Stock        int     `json:"stock" binding:"gte=0"`
}

type createProductReq struct {
	Name               string                    `json:"name" binding:"required"`
	Slug               string                    `json:"slug" binding:"required"`
	Description        string                    `json:"description"`
	Category           string                    `json:"category" binding:"required"`
	Tags               []string                  `json:"tags"`
	Images             []string                  `json:"images"`
	PrimaryVariantType string                    `json:"primary_variant_type" binding:"required,oneof=size color weight"`
	PrimaryVariants    []variantItemReq          `json:"primary_variants" binding:"required,min=1,dive"`
	SecondaryVariants  *models.SecondaryVariants `json:"secondary_variants"`
}

type updateProductReq struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`
}

type customerInfoReq struct {
	FullName    string `json:"full_name" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	FullAddress string `json:"full_address" binding:"required"`
	Country     string `json:"country" binding:"required"`
	OrderNotes  string `json:"order_notes"`
}

type primarySelectionReq struct {
	Type  string `json:"type" binding:"required,oneof=size color weight"`
	Value string `json:"value" binding:"required"`
}

type secondarySelectionReq struct {
	Type  string `json:"type" binding:"required,oneof=size color weight"`
	Value string `json:"value" binding:"required"`
}

type orderItemReq struct {
	ProductID           int64                   `json:"product_id" binding:"required"`
	Quantity            int                     `json:"quantity" binding:"required,gte=1"`
	PrimarySelection    primarySelectionReq     `json:"primary_selection" binding:"required"`
	SecondarySelections []secondarySelectionReq `json:"secondary_selections" binding:"dive"`
	UnitPrice           float64                 `json:"unit_price" binding:"gte=0"`
	UnitSellingPrice    float64                 `json:"unit_selling_price" binding:"gte=0"`
	LineTotal           float64                 `json:"line_total" binding:"gte=0"`
}

type paymentDetailsReq struct {
	Method        string `json:"method" binding:"required,oneof=bkash nagad"`
	Phone         string `json:"phone" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
}

type createOrderReq struct {
	CustomerInfo   customerInfoReq   `json:"customer_info" binding:"required"`
	ShippingOption string            `json:"shipping_option" binding:"required,oneof=domestic-capital outside"`
	ShippingCost   float64           `json:"shipping_cost" binding:"gte=0"`
	Items          []orderItemReq    `json:"items" binding:"required,min=1,dive"`
	Subtotal       float64           `json:"subtotal" binding:"gte=0"`
	Total          float64           `json:"total" binding:"gte=0"`
	PaymentDetails paymentDetailsReq `json:"payment_details" binding:"required"`
}

type updateOrderReq struct {
	Status       *string          `json:"status"`
	CustomerInfo *customerInfoReq `json:"customer_info"`
}

type createBlogReq struct {
	Title       string   `json:"title" binding:"required"`
	Slug        string   `json:"slug" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	IsPublished bool     `json:"is_published"`
}

type updateBlogReq struct {
	Title       *string  `json:"title"`
	Content     *string  `json:"content"`
	Tags        []string `json:"tags"`
	IsPublished *bool    `json:"is_published"`
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.Query("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// Product handlers

func (s *Server) createProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]models.PrimaryVariantItem, len(req.PrimaryVariants))
	for i, v := range req.PrimaryVariants {
		items[i] = models.PrimaryVariantItem{
			Value:        v.Value,
			Price:        decimal.NewFromFloat(v.Price),
			SellingPrice: decimal.NewFromFloat(v.SellingPrice),
			Stock:        v.Stock,
		}
	}

	product, err := store.CreateProduct(c.Request.Context(), s.db, store.CreateProductRequest{
		Name:               req.Name,
		Slug:               req.Slug,
		Description:        req.Description,
		Category:           req.Category,
		Tags:               req.Tags,
		Images:             req.Images,
		PrimaryVariantType: req.PrimaryVariantType,
		PrimaryVariants:    items,
		SecondaryVariants:  req.SecondaryVariants,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	product, err := store.GetProduct(c.Request.Context(), s.db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (s *Server) getProductBySlug(c *gin.Context) {
	product, err := store.GetProductBySlug(c.Request.Context(), s.db, c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (s *Server) listProducts(c *gin.Context) {
	page, pageSize := pageParams(c)

	result, err := store.ListProducts(c.Request.Context(), s.db, page, pageSize, c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := store.UpdateProduct(c.Request.Context(), s.db, id, store.UpdateProductRequest{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		Images:      req.Images,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := store.DeleteProduct(c.Request.Context(), s.db, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Order handlers

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]store.OrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		var secondary []models.SecondarySelection
		for _, sel := range item.SecondarySelections {
			secondary = append(secondary, models.SecondarySelection{Type: sel.Type, Value: sel.Value})
		}
		items[i] = store.OrderItemRequest{
			ProductID:           item.ProductID,
			Quantity:            item.Quantity,
			PrimaryType:         item.PrimarySelection.Type,
			PrimaryValue:        item.PrimarySelection.Value,
			SecondarySelections: secondary,
			UnitPrice:           decimal.NewFromFloat(item.UnitPrice),
			UnitSellingPrice:    decimal.NewFromFloat(item.UnitSellingPrice),
			LineTotal:           decimal.NewFromFloat(item.LineTotal),
		}
	}

	order, err := store.CreateOrder(c.Request.Context(), s.db, store.CreateOrderRequest{
		CustomerInfo: models.CustomerInfo{
			FullName:    req.CustomerInfo.FullName,
			Phone:       req.CustomerInfo.Phone,
			FullAddress: req.CustomerInfo.FullAddress,
			Country:     req.CustomerInfo.Country,
			OrderNotes:  req.CustomerInfo.OrderNotes,
		},
		ShippingOption: req.ShippingOption,
		ShippingCost:   decimal.NewFromFloat(req.ShippingCost),
		Items:          items,
		Subtotal:       decimal.NewFromFloat(req.Subtotal),
		Total:          decimal.NewFromFloat(req.Total),
		PaymentDetails: models.PaymentDetails{
			Method:        req.PaymentDetails.Method,
			Phone:         req.PaymentDetails.Phone,
			TransactionID: req.PaymentDetails.TransactionID,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := store.GetOrder(c.Request.Context(), s.db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (s *Server) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	result, err := store.ListOrdersCursor(c.Request.Context(), s.db, c.Query("cursor"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) updateOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := store.UpdateOrderRequest{Status: req.Status}
	if req.CustomerInfo != nil {
		patch.CustomerInfo = &models.CustomerInfo{
			FullName:    req.CustomerInfo.FullName,
			Phone:       req.CustomerInfo.Phone,
			FullAddress: req.CustomerInfo.FullAddress,
			Country:     req.CustomerInfo.Country,
			OrderNotes:  req.CustomerInfo.OrderNotes,
		}
	}

	order, err := store.UpdateOrder(c.Request.Context(), s.db, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (s *Server) deleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := store.DeleteOrder(c.Request.Context(), s.db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// Blog handlers

func (s *Server) createBlog(c *gin.Context) {
	var req createBlogReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blog, err := store.CreateBlog(c.Request.Context(), s.db, store.CreateBlogRequest{
		Title:       req.Title,
		Slug:        req.Slug,
		Content:     req.Content,
		Author:      req.Author,
		Tags:        req.Tags,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, blog)
}

func (s *Server) getBlog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	blog, err := store.GetBlog(c.Request.Context(), s.db, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, blog)
}

func (s *Server) listBlogs(c *gin.Context) {
	page, pageSize := pageParams(c)

	result, err := store.ListBlogs(c.Request.Context(), s.db, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) updateBlog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateBlogReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blog, err := store.UpdateBlog(c.Request.Context(), s.db, id, store.UpdateBlogRequest{
		Title:       req.Title,
		Content:     req.Content,
		Tags:        req.Tags,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, blog)
}

func (s *Server) deleteBlog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := store.DeleteBlog(c.Request.Context(), s.db, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
