package services

import (
	"context"
	"fmt"

	"club-space-backend/pkg/booking"
	"club-space-backend/pkg/database"
	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/models"

	"github.com/sirupsen/logrus"
)

// BookingRequest 预约请求
type BookingRequest struct {
	SpaceID string   `json:"space_id" validate:"required"`
	Date    string   `json:"date" validate:"required,datetime=2006-01-02"`
	Slots   []string `json:"slots" validate:"required,min=1,dive,required"`
}

// ReservationService 场地查询、可用时段、预约与取消
type ReservationService struct {
	base
	db     database.DatabaseInterface
	policy *booking.Policy
}

// NewReservationService 创建预约服务
func NewReservationService(db database.DatabaseInterface, policy *booking.Policy) *ReservationService {
	b := newBase()
	if policy == nil {
		policy = booking.NewPolicy("Asia/Seoul", nil)
	}
	return &ReservationService{base: b, db: db, policy: policy}
}

// ListSpaces 场地列表
func (s *ReservationService) ListSpaces(ctx context.Context) ([]models.Space, error) {
	return s.db.ListSpaces(ctx)
}

// GetSpace 场地详情
func (s *ReservationService) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	return s.db.GetSpace(ctx, id)
}

// Availability 每次请求都重新计算，不做缓存
func (s *ReservationService) Availability(ctx context.Context, spaceID, date string) (*models.SpaceAvailability, error) {
	day, err := booking.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.GetSpace(ctx, spaceID); err != nil {
		return nil, err
	}
	reservations, err := s.db.ListConfirmedReservations(ctx, spaceID, day)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	slots, err := booking.Availability(reservations)
	if err != nil {
		return nil, err
	}
	return &models.SpaceAvailability{SpaceID: spaceID, Date: day, Slots: slots}, nil
}

// Book 校验所选时段并写入一条 confirmed 预约
func (s *ReservationService) Book(ctx context.Context, userID string, req BookingRequest) (*models.Reservation, error) {
	day, err := booking.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanBook(day); err != nil {
		return nil, err
	}
	space, err := s.db.GetSpace(ctx, req.SpaceID)
	if err != nil {
		return nil, err
	}
	plan, err := booking.PlanBooking(req.Slots, space.HourlyRate)
	if err != nil {
		return nil, err
	}

	r := &models.Reservation{
		ID:              s.newID(),
		SpaceID:         space.ID,
		UserID:          userID,
		ReservationDate: day,
		StartTime:       plan.StartTime,
		EndTime:         plan.EndTime,
		TotalAmount:     plan.TotalAmount,
		Status:          models.ReservationConfirmed,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.db.CreateReservation(ctx, r); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"reservation_id": r.ID,
		"space_id":       r.SpaceID,
		"date":           r.ReservationDate,
		"slots":          plan.SlotCount,
	}).Info("📅 Reservation confirmed")
	return r, nil
}

// MyReservations 当前用户的预约，带展示状态
func (s *ReservationService) MyReservations(ctx context.Context, userID string) ([]models.ReservationWithSpace, error) {
	list, err := s.db.ListUserReservations(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].DisplayState = s.policy.DisplayState(list[i].Reservation)
		list[i].Cancellable = s.policy.CanCancel(list[i].Reservation) == nil
	}
	return list, nil
}

// Cancel 仅本人、仅 confirmed、仅在预约日期之前可取消；只改状态不删除
func (s *ReservationService) Cancel(ctx context.Context, userID, reservationID string) (*models.Reservation, error) {
	r, err := s.db.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, database.ErrForbidden
	}
	if err := s.policy.CanCancel(*r); err != nil {
		return nil, err
	}
	if err := s.db.CancelReservation(ctx, r.ID, userID); err != nil {
		return nil, err
	}
	r.Status = models.ReservationCancelled

	logger.FromContext(ctx).WithField("reservation_id", r.ID).Info("🗑️ Reservation cancelled")
	return r, nil
}
