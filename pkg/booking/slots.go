// Package booking 场地预约的时间段网格、可用性计算、预约计划与取消规则
package booking

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"club-space-backend/pkg/models"
)

const (
	// OpenMinute 营业开始 06:00
	OpenMinute = 6 * 60
	// CloseMinute 营业结束 22:00（最后一个时间段从 21:30 开始）
	CloseMinute = 22 * 60
	// SlotMinutes 单个时间段长度
	SlotMinutes = 30
	// SlotsPerDay 每天的时间段数量
	SlotsPerDay = (CloseMinute - OpenMinute) / SlotMinutes

	DateLayout = "2006-01-02"
)

var (
	ErrNoSlots       = errors.New("at least one slot is required")
	ErrInvalidSlot   = errors.New("slot is not on the booking grid")
	ErrDuplicateSlot = errors.New("slot selected more than once")
	ErrNotContiguous = errors.New("selected slots are not contiguous")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
	ErrPastDate      = errors.New("reservations must be for a date after today")
	ErrInvalidRate   = errors.New("hourly rate must not be negative")
	ErrCancelWindow  = errors.New("reservations can only be cancelled before their date")
	ErrNotCancelable = errors.New("reservation is not confirmed")
)

// ParseClock 将 "HH:MM" 或 "HH:MM:SS" 转为当天分钟数
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec != 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
	}
	if h == 24 && m != 0 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// FormatClock 分钟数转 "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock 统一为 "HH:MM"
func NormalizeClock(s string) (string, error) {
	m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatClock(m), nil
}

// GenerateSlots 生成当天全部时间段起点 06:00 ... 21:30
func GenerateSlots() []string {
	slots := make([]string, 0, SlotsPerDay)
	for m := OpenMinute; m < CloseMinute; m += SlotMinutes {
		slots = append(slots, FormatClock(m))
	}
	return slots
}

// IsGridSlot reports whether minutes is a slot start inside operating hours.
func IsGridSlot(minutes int) bool {
	return minutes >= OpenMinute && minutes < CloseMinute && (minutes-OpenMinute)%SlotMinutes == 0
}

// Availability 计算每个时间段是否可预约。
// 只有 confirmed 的预约会占用时间段，区间为 [start, end)。
func Availability(reservations []models.Reservation) ([]models.TimeSlot, error) {
	type span struct{ start, end int }
	taken := make([]span, 0, len(reservations))
	for _, r := range reservations {
		if r.Status != models.ReservationConfirmed {
			continue
		}
		start, err := ParseClock(r.StartTime)
		if err != nil {
			return nil, fmt.Errorf("reservation %s: %w", r.ID, err)
		}
		end, err := ParseClock(r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("reservation %s: %w", r.ID, err)
		}
		taken = append(taken, span{start, end})
	}

	slots := make([]models.TimeSlot, 0, SlotsPerDay)
	for m := OpenMinute; m < CloseMinute; m += SlotMinutes {
		available := true
		for _, s := range taken {
			if s.start <= m && m < s.end {
				available = false
				break
			}
		}
		slots = append(slots, models.TimeSlot{Time: FormatClock(m), Available: available})
	}
	return slots, nil
}

// Plan 预约写入计划
type Plan struct {
	StartTime   string
	EndTime     string
	SlotCount   int
	TotalAmount int64
}

// PlanBooking 校验所选时间段并计算结束时间与总价。
// total = 时间段数 * 小时价 / 2
func PlanBooking(selected []string, hourlyRate int64) (*Plan, error) {
	if len(selected) == 0 {
		return nil, ErrNoSlots
	}
	if hourlyRate < 0 {
		return nil, ErrInvalidRate
	}

	minutes := make([]int, 0, len(selected))
	seen := make(map[int]bool, len(selected))
	for _, s := range selected {
		m, err := ParseClock(s)
		if err != nil || !IsGridSlot(m) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSlot, s)
		}
		if seen[m] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSlot, s)
		}
		seen[m] = true
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)

	for i := 1; i < len(minutes); i++ {
		if minutes[i]-minutes[i-1] != SlotMinutes {
			return nil, fmt.Errorf("%w: gap between %s and %s", ErrNotContiguous, FormatClock(minutes[i-1]), FormatClock(minutes[i]))
		}
	}

	n := len(minutes)
	return &Plan{
		StartTime:   FormatClock(minutes[0]),
		EndTime:     FormatClock(minutes[n-1] + SlotMinutes),
		SlotCount:   n,
		TotalAmount: int64(n) * hourlyRate / 2,
	}, nil
}

// ParseDate 严格校验请求中的 YYYY-MM-DD 日期
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return s, nil
}

// StoredDate 规范化存储层返回的日期，允许 "YYYY-MM-DDT..." 或 "YYYY-MM-DD HH..." 的时间部分
func StoredDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	return ParseDate(s)
}
