package booking

import (
	"fmt"
	"time"

	"club-space-backend/pkg/models"
)

// Clock 当前时间来源，测试时可替换
type Clock func() time.Time

// Policy 营业时区下的日期相关规则
type Policy struct {
	Location *time.Location
	Now      Clock
}

// NewPolicy 创建策略；时区加载失败时退回 UTC+9
func NewPolicy(timezone string, now Clock) *Policy {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}
	if now == nil {
		now = time.Now
	}
	return &Policy{Location: loc, Now: now}
}

// Today returns the business-local date as YYYY-MM-DD.
func (p *Policy) Today() string {
	return p.Now().In(p.Location).Format(DateLayout)
}

// CanBook 只能预约今天之后的日期；day 须已经过 ParseDate
func (p *Policy) CanBook(day string) error {
	if day <= p.Today() {
		return fmt.Errorf("%w: %s", ErrPastDate, day)
	}
	return nil
}

// CanCancel 只有日期严格晚于今天的 confirmed 预约可以取消
func (p *Policy) CanCancel(r models.Reservation) error {
	if r.Status != models.ReservationConfirmed {
		return ErrNotCancelable
	}
	date, err := StoredDate(r.ReservationDate)
	if err != nil {
		return err
	}
	if date <= p.Today() {
		return ErrCancelWindow
	}
	return nil
}

// DisplayState 我的预约列表上展示的状态
func (p *Policy) DisplayState(r models.Reservation) string {
	if r.Status == models.ReservationCancelled {
		return "cancelled"
	}
	date, err := StoredDate(r.ReservationDate)
	if err == nil && date < p.Today() {
		return "completed"
	}
	return "confirmed"
}
