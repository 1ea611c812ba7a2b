package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"ridedesk/internal/models"
	"ridedesk/internal/repository"
)

const recentOrders = 5

type DashboardService struct {
	users         UserStore
	orders        OrderStore
	verifications VerificationStore
	notifications NotificationStore
}

func NewDashboardService(users UserStore, orders OrderStore, verifications VerificationStore, notifications NotificationStore) *DashboardService {
	return &DashboardService{
		users:         users,
		orders:        orders,
		verifications: verifications,
		notifications: notifications,
	}
}

type ClientDashboard struct {
	Orders models.OrderStats
	Recent []models.Order
	Unread int
}

func (s *DashboardService) Client(ctx context.Context, clientID string) (ClientDashboard, error) {
	var out ClientDashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Orders, err = s.orders.Stats(gctx, models.OrderFilter{CustomerID: clientID})
		return err
	})
	g.Go(func() (err error) {
		out.Recent, err = s.orders.List(gctx, models.OrderFilter{CustomerID: clientID, Limit: recentOrders})
		return err
	})
	g.Go(func() (err error) {
		out.Unread, err = s.notifications.CountUnread(gctx, clientID)
		return err
	})
	return out, g.Wait()
}

type DriverDashboard struct {
	Status       models.UserStatus
	Verification *models.Verification
	Deliveries   models.OrderStats
	Unread       int
}

func (s *DashboardService) Driver(ctx context.Context, driver models.User) (DriverDashboard, error) {
	out := DriverDashboard{Status: driver.Status}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.verifications.LatestByUser(gctx, driver.ID)
		if errors.Is(err, repository.ErrVerificationNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out.Verification = &v
		return nil
	})
	g.Go(func() (err error) {
		out.Deliveries, err = s.orders.Stats(gctx, models.OrderFilter{DriverID: driver.ID})
		return err
	})
	g.Go(func() (err error) {
		out.Unread, err = s.notifications.CountUnread(gctx, driver.ID)
		return err
	})
	return out, g.Wait()
}

type AdminDashboard struct {
	Users          map[models.UserRole]map[models.UserStatus]int
	PendingReviews int
	Orders         models.OrderStats
}

func (s *DashboardService) Admin(ctx context.Context) (AdminDashboard, error) {
	var out AdminDashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Users, err = s.users.CountByRoleStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Orders, err = s.orders.Stats(gctx, models.OrderFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminDashboard{}, err
	}
	out.PendingReviews = out.Users[models.UserRoleDriver][models.UserStatusPending]
	return out, nil
}
