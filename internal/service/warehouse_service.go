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

type WarehouseService interface {
	Create(ctx context.Context, actor model.Actor, req dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.WarehouseResponse, error)
	List(ctx context.Context, activeOnly bool) ([]dto.WarehouseResponse, error)
}

type warehouseService struct {
	warehouses repository.WarehouseRepository
	audit      AuditService
}

func NewWarehouseService(warehouses repository.WarehouseRepository, audit AuditService) WarehouseService {
	return &warehouseService{warehouses: warehouses, audit: audit}
}

func (s *warehouseService) Create(ctx context.Context, actor model.Actor, req dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	actorID := actor.ID
	warehouse := &model.Warehouse{
		Name:      req.Name,
		Address:   req.Address,
		Phone:     req.Phone,
		Active:    true,
		CreatedBy: &actorID,
	}
	if err := s.warehouses.Create(ctx, warehouse); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &actorID, model.ActionCreate, "warehouse", &warehouse.ID, model.AuditDetail{
		"name": warehouse.Name,
	})
	return warehouseToResponse(warehouse), nil
}

func (s *warehouseService) Get(ctx context.Context, id uuid.UUID) (*dto.WarehouseResponse, error) {
	warehouse, err := s.warehouses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("warehouse", id)
		}
		return nil, err
	}
	return warehouseToResponse(warehouse), nil
}

func (s *warehouseService) List(ctx context.Context, activeOnly bool) ([]dto.WarehouseResponse, error) {
	warehouses, err := s.warehouses.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	data := make([]dto.WarehouseResponse, 0, len(warehouses))
	for i := range warehouses {
		data = append(data, *warehouseToResponse(&warehouses[i]))
	}
	return data, nil
}

func warehouseToResponse(w *model.Warehouse) *dto.WarehouseResponse {
	return &dto.WarehouseResponse{
		ID:      w.ID.String(),
		Name:    w.Name,
		Address: w.Address,
		Phone:   w.Phone,
		Active:  w.Active,
	}
}

// ClientService is sale counterparty master data.
type ClientService interface {
	Create(ctx context.Context, actor model.Actor, req dto.CreateClientRequest) (*dto.ClientResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ClientResponse, error)
	List(ctx context.Context) ([]dto.ClientResponse, error)
}

type clientService struct {
	clients repository.ClientRepository
	audit   AuditService
}

func NewClientService(clients repository.ClientRepository, audit AuditService) ClientService {
	return &clientService{clients: clients, audit: audit}
}

func (s *clientService) Create(ctx context.Context, actor model.Actor, req dto.CreateClientRequest) (*dto.ClientResponse, error) {
	kind := req.Kind
	if kind == "" {
		kind = "individual"
	}
	actorID := actor.ID
	client := &model.Client{
		Name:      req.Name,
		Kind:      kind,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		CreatedBy: &actorID,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &actorID, model.ActionCreate, "client", &client.ID, model.AuditDetail{
		"name": client.Name,
	})
	return clientToResponse(client), nil
}

func (s *clientService) Get(ctx context.Context, id uuid.UUID) (*dto.ClientResponse, error) {
	client, err := s.clients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("client", id)
		}
		return nil, err
	}
	return clientToResponse(client), nil
}

func (s *clientService) List(ctx context.Context) ([]dto.ClientResponse, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ClientResponse, 0, len(clients))
	for i := range clients {
		data = append(data, *clientToResponse(&clients[i]))
	}
	return data, nil
}

func clientToResponse(c *model.Client) *dto.ClientResponse {
	return &dto.ClientResponse{
		ID:      c.ID.String(),
		Name:    c.Name,
		Kind:    c.Kind,
		Phone:   c.Phone,
		Email:   c.Email,
		Address: c.Address,
	}
}
