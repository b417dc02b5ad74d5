package service

import (
	"context"
	"errors"

	"stockpos/internal/apierror"
	"stockpos/internal/dto"
	"stockpos/internal/model"
	"stockpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductService is catalog master data CRUD.
type ProductService interface {
	Create(ctx context.Context, actor model.Actor, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, actor model.Actor, id uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error)
}

type productService struct {
	products repository.ProductRepository
	audit    AuditService
}

func NewProductService(products repository.ProductRepository, audit AuditService) ProductService {
	return &productService{products: products, audit: audit}
}

func (s *productService) Create(ctx context.Context, actor model.Actor, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if _, err := s.products.FindByCode(ctx, req.Code); err == nil {
		return nil, apierror.Validationf("code", "product code %q already exists", req.Code)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	threshold := req.AlertThreshold
	if threshold == 0 {
		threshold = 5
	}
	actorID := actor.ID
	product := &model.Product{
		Code:           req.Code,
		Name:           req.Name,
		Description:    req.Description,
		PurchasePrice:  req.PurchasePrice,
		WholesalePrice: req.WholesalePrice,
		RetailPrice:    req.RetailPrice,
		SalePrice:      req.SalePrice,
		AlertThreshold: threshold,
		CreatedBy:      &actorID,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &actorID, model.ActionCreate, "product", &product.ID, model.AuditDetail{
		"code": product.Code,
		"name": product.Name,
	})
	return productToResponse(product), nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product", id)
		}
		return nil, err
	}
	return productToResponse(product), nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, *productToResponse(&products[i]))
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return &dto.ProductListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *productService) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product", id)
		}
		return nil, err
	}
	if req.Code != product.Code {
		if _, err := s.products.FindByCode(ctx, req.Code); err == nil {
			return nil, apierror.Validationf("code", "product code %q already exists", req.Code)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	product.Code = req.Code
	product.Name = req.Name
	product.Description = req.Description
	product.PurchasePrice = req.PurchasePrice
	product.WholesalePrice = req.WholesalePrice
	product.RetailPrice = req.RetailPrice
	product.SalePrice = req.SalePrice
	if req.AlertThreshold > 0 {
		product.AlertThreshold = req.AlertThreshold
	}
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	actorID := actor.ID
	s.audit.Record(ctx, &actorID, model.ActionUpdate, "product", &product.ID, model.AuditDetail{
		"code": product.Code,
		"name": product.Name,
	})
	return productToResponse(product), nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:             p.ID.String(),
		Code:           p.Code,
		Name:           p.Name,
		Description:    p.Description,
		PurchasePrice:  p.PurchasePrice,
		WholesalePrice: p.WholesalePrice,
		RetailPrice:    p.RetailPrice,
		SalePrice:      p.SalePrice,
		AlertThreshold: p.AlertThreshold,
		CreatedAt:      p.CreatedAt.Format(timeFormat),
	}
}
