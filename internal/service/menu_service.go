package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"ridedesk/internal/ids"
	"ridedesk/internal/models"
	"ridedesk/internal/realtime"
)

var ErrInvalidMenuItem = errors.New("invalid menu item")

const (
	minMenuNameLength        = 2
	minMenuDescriptionLength = 10
	minMenuPrice             = 0.01
)

// DefaultMenuImageURL is used when a menu item is saved without a picture.
func DefaultMenuImageURL(id string) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/600/400", url.PathEscape(id))
}

type MenuService struct {
	store  MenuStore
	events EventPublisher
	log    zerolog.Logger
}

func NewMenuService(store MenuStore, events EventPublisher, log zerolog.Logger) *MenuService {
	return &MenuService{store: store, events: events, log: log}
}

type MenuItemInput struct {
	Name        string
	Description string
	Price       float64
	ImageURL    string
}

func (in MenuItemInput) validate() (MenuItemInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	switch {
	case len(in.Name) < minMenuNameLength:
		return in, fmt.Errorf("%w: name must be at least %d characters", ErrInvalidMenuItem, minMenuNameLength)
	case len(in.Description) < minMenuDescriptionLength:
		return in, fmt.Errorf("%w: description must be at least %d characters", ErrInvalidMenuItem, minMenuDescriptionLength)
	case math.IsNaN(in.Price) || in.Price < minMenuPrice:
		return in, fmt.Errorf("%w: price must be at least %.2f", ErrInvalidMenuItem, minMenuPrice)
	}
	if in.ImageURL != "" {
		u, err := url.Parse(in.ImageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return in, fmt.Errorf("%w: image url must be an absolute http(s) url", ErrInvalidMenuItem)
		}
	}
	return in, nil
}

func (s *MenuService) List(ctx context.Context, clientID string) ([]models.MenuItem, error) {
	return s.store.ListByClient(ctx, clientID)
}

func (s *MenuService) Create(ctx context.Context, clientID string, input MenuItemInput) (models.MenuItem, error) {
	input, err := input.validate()
	if err != nil {
		return models.MenuItem{}, err
	}

	item := models.MenuItem{
		ID:          ids.New(),
		ClientID:    clientID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
	}
	if item.ImageURL == "" {
		item.ImageURL = DefaultMenuImageURL(item.ID)
	}
	if err := s.store.Create(ctx, item); err != nil {
		return models.MenuItem{}, err
	}
	publishEvent(ctx, s.events, s.log, realtime.EventMenuCreated, clientID, menuPayload(item))
	return item, nil
}

func (s *MenuService) Update(ctx context.Context, clientID, id string, input MenuItemInput) (models.MenuItem, error) {
	input, err := input.validate()
	if err != nil {
		return models.MenuItem{}, err
	}

	item, err := s.store.Get(ctx, clientID, id)
	if err != nil {
		return models.MenuItem{}, err
	}
	item.Name = input.Name
	item.Description = input.Description
	item.Price = input.Price
	item.ImageURL = input.ImageURL
	if item.ImageURL == "" {
		item.ImageURL = DefaultMenuImageURL(item.ID)
	}
	if err := s.store.Update(ctx, item); err != nil {
		return models.MenuItem{}, err
	}
	publishEvent(ctx, s.events, s.log, realtime.EventMenuUpdated, clientID, menuPayload(item))
	return item, nil
}

func (s *MenuService) Delete(ctx context.Context, clientID, id string) error {
	if err := s.store.Delete(ctx, clientID, id); err != nil {
		return err
	}
	publishEvent(ctx, s.events, s.log, realtime.EventMenuDeleted, clientID, map[string]string{"id": id})
	return nil
}

func menuPayload(item models.MenuItem) map[string]any {
	return map[string]any{
		"id":          item.ID,
		"name":        item.Name,
		"description": item.Description,
		"price":       item.Price,
		"imageUrl":    item.ImageURL,
	}
}
