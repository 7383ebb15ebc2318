package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"club-space-backend/pkg/models"
	"club-space-backend/pkg/teams"
)

// SupabaseDatabase Supabase数据库实现（PostgREST）
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseDatabase 创建Supabase数据库实例
func NewSupabaseDatabase(baseURL, key string) *SupabaseDatabase {
	// 确保URL格式正确
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}

	return &SupabaseDatabase{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(key),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError PostgREST 错误响应
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase request failed with status %d: %s %s", e.Status, e.Code, e.Message)
}

// Unwrap 将 PostgREST 错误映射为包内哨兵错误
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "23505" || e.Status == http.StatusConflict:
		return ErrConflict
	case e.Code == "23P01":
		return ErrSlotTaken
	case e.Code == "22P02":
		return ErrNotFound
	case e.Code == "P0001":
		if err, ok := rpcErrors[strings.TrimSpace(e.Message)]; ok {
			return err
		}
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// rpcErrors 与 scripts/init_db.sql 中 RAISE EXCEPTION 的消息对应
var rpcErrors = map[string]error{
	"NOT_FOUND":              ErrNotFound,
	"NOT_INVITEE":            teams.ErrNotInvitee,
	"INVITATION_NOT_PENDING": teams.ErrInvitationNotPending,
	"TEAM_NOT_PENDING":       teams.ErrTeamNotPending,
	"INVALID_TEAM_SIZE":      teams.ErrInvalidTeamSize,
	"LEADER_COUNT":           teams.ErrLeaderCount,
	"MEMBER_NOT_FOUND":       teams.ErrMemberNotFound,
}

// makeRequest 发送HTTP请求到Supabase
func (db *SupabaseDatabase) makeRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	data, _, err := db.makeRequestWithHeaders(ctx, method, endpoint, body, nil)
	return data, err
}

// makeRequestWithHeaders 发送HTTP请求到Supabase（支持自定义头）
func (db *SupabaseDatabase) makeRequestWithHeaders(ctx context.Context, method, endpoint string, body interface{}, customHeaders map[string]string) ([]byte, http.Header, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, db.baseURL+"/rest/v1"+endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 设置默认请求头
	req.Header.Set("apikey", db.apiKey)
	req.Header.Set("Authorization", "Bearer "+db.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	for key, value := range customHeaders {
		req.Header.Set(key, value)
	}

	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(respBody)
		}
		return nil, nil, apiErr
	}
	return respBody, resp.Header, nil
}

// getRows GET 并解码为数组
func (db *SupabaseDatabase) getRows(ctx context.Context, table string, q url.Values, out interface{}) error {
	data, err := db.makeRequest(ctx, http.MethodGet, "/"+table+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

// mutateRows PATCH/DELETE 并返回受影响的行数
func (db *SupabaseDatabase) mutateRows(ctx context.Context, method, table string, q url.Values, body interface{}) (int, error) {
	data, err := db.makeRequest(ctx, method, "/"+table+"?"+q.Encode(), body)
	if err != nil {
		return 0, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("decode %s: %w", table, err)
	}
	return len(rows), nil
}

// count 使用 Prefer: count=exact 读取 Content-Range 中的总数
func (db *SupabaseDatabase) count(ctx context.Context, table string, q url.Values) (int, error) {
	q.Set("limit", "1")
	_, header, err := db.makeRequestWithHeaders(ctx, http.MethodGet, "/"+table+"?"+q.Encode(), nil,
		map[string]string{"Prefer": "count=exact"})
	if err != nil {
		return 0, err
	}
	cr := header.Get("Content-Range")
	i := strings.LastIndex(cr, "/")
	if i < 0 {
		return 0, fmt.Errorf("missing content-range for %s", table)
	}
	return strconv.Atoi(cr[i+1:])
}

func eq(v string) string { return "eq." + v }

// inList PostgREST in.(a,b,c)
func inList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = `"` + strings.ReplaceAll(id, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

// likePattern PostgREST 的 like 使用 * 作为通配符
func likePattern(s string) string {
	return strings.NewReplacer("*", "", ",", "", "(", "", ")", "").Replace(s)
}

// ================= Profiles =================

// UpsertProfile 创建或更新用户资料
func (db *SupabaseDatabase) UpsertProfile(ctx context.Context, p *models.Profile) error {
	payload := map[string]interface{}{
		"id":         p.ID,
		"email":      p.Email,
		"updated_at": p.UpdatedAt,
	}
	if p.DisplayName != "" {
		payload["display_name"] = p.DisplayName
	}
	if p.AvatarURL != "" {
		payload["avatar_url"] = p.AvatarURL
	}
	_, _, err := db.makeRequestWithHeaders(ctx, http.MethodPost, "/profiles?on_conflict=id", payload,
		map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"})
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile 根据ID获取用户资料
func (db *SupabaseDatabase) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var rows []models.Profile
	if err := db.getRows(ctx, "profiles", url.Values{"id": {eq(id)}, "select": {"*"}}, &rows); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return &rows[0], nil
}

// SearchProfilesByName 按显示名模糊搜索
func (db *SupabaseDatabase) SearchProfilesByName(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	var rows []models.Profile
	q := url.Values{
		"display_name": {"ilike.*" + likePattern(query) + "*"},
		"select":       {"*"},
		"order":        {"display_name"},
		"limit":        {strconv.Itoa(limit)},
	}
	if err := db.getRows(ctx, "profiles", q, &rows); err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return rows, nil
}

// FindProfilesByEmailPrefix 邮箱 @ 前部分完全匹配
func (db *SupabaseDatabase) FindProfilesByEmailPrefix(ctx context.Context, prefix string, limit int) ([]models.Profile, error) {
	var rows []models.Profile
	q := url.Values{
		"email":  {"ilike." + likePattern(prefix) + "@*"},
		"select": {"*"},
		"order":  {"email"},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := db.getRows(ctx, "profiles", q, &rows); err != nil {
		return nil, fmt.Errorf("find profiles by email: %w", err)
	}
	return rows, nil
}

// GetProfileStats 用户主页统计
func (db *SupabaseDatabase) GetProfileStats(ctx context.Context, profileID, viewerID string) (*models.ProfileStats, error) {
	p, err := db.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	stats := &models.ProfileStats{Profile: *p}
	if stats.FollowerCount, err = db.count(ctx, "follows", url.Values{"following_id": {eq(profileID)}, "select": {"follower_id"}}); err != nil {
		return nil, fmt.Errorf("count followers: %w", err)
	}
	if stats.FollowingCount, err = db.count(ctx, "follows", url.Values{"follower_id": {eq(profileID)}, "select": {"following_id"}}); err != nil {
		return nil, fmt.Errorf("count following: %w", err)
	}
	if stats.PostCount, err = db.count(ctx, "posts", url.Values{"author_id": {eq(profileID)}, "select": {"id"}}); err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	if viewerID != "" && viewerID != profileID {
		n, err := db.count(ctx, "follows", url.Values{"follower_id": {eq(viewerID)}, "following_id": {eq(profileID)}, "select": {"follower_id"}})
		if err != nil {
			return nil, fmt.Errorf("check following: %w", err)
		}
		stats.IsFollowing = n > 0
	}
	return stats, nil
}

// ================= Spaces & Reservations =================

// ListSpaces 场地列表
func (db *SupabaseDatabase) ListSpaces(ctx context.Context) ([]models.Space, error) {
	rows := []models.Space{}
	if err := db.getRows(ctx, "spaces", url.Values{"select": {"*"}, "order": {"name"}}, &rows); err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	return rows, nil
}

// GetSpace 获取场地
func (db *SupabaseDatabase) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	var rows []models.Space
	if err := db.getRows(ctx, "spaces", url.Values{"id": {eq(id)}, "select": {"*"}}, &rows); err != nil {
		return nil, fmt.Errorf("get space: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("space %s: %w", id, ErrNotFound)
	}
	return &rows[0], nil
}

func normalizeReservation(r *models.Reservation) {
	r.ReservationDate = normalizeDate(r.ReservationDate)
	r.StartTime = normalizeTime(r.StartTime)
	r.EndTime = normalizeTime(r.EndTime)
}

// ListConfirmedReservations 某场地某日的 confirmed 预约
func (db *SupabaseDatabase) ListConfirmedReservations(ctx context.Context, spaceID, date string) ([]models.Reservation, error) {
	var rows []models.Reservation
	q := url.Values{
		"space_id":         {eq(spaceID)},
		"reservation_date": {eq(date)},
		"status":           {eq(string(models.ReservationConfirmed))},
		"select":           {"*"},
		"order":            {"start_time"},
	}
	if err := db.getRows(ctx, "reservations", q, &rows); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	for i := range rows {
		normalizeReservation(&rows[i])
	}
	return rows, nil
}

// CreateReservation 插入预约；重叠由 reservations_no_overlap 约束拒绝
func (db *SupabaseDatabase) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if _, err := db.makeRequest(ctx, http.MethodPost, "/reservations", r); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// GetReservation 获取预约
func (db *SupabaseDatabase) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var rows []models.Reservation
	if err := db.getRows(ctx, "reservations", url.Values{"id": {eq(id)}, "select": {"*"}}, &rows); err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	normalizeReservation(&rows[0])
	return &rows[0], nil
}

// ListUserReservations 我的预约（含场地名称）
func (db *SupabaseDatabase) ListUserReservations(ctx context.Context, userID string) ([]models.ReservationWithSpace, error) {
	var rows []struct {
		models.Reservation
		Spaces *struct {
			Name     string `json:"name"`
			Location string `json:"location"`
		} `json:"spaces"`
	}
	q := url.Values{
		"user_id": {eq(userID)},
		"select":  {"*,spaces(name,location)"},
		"order":   {"reservation_date.desc,start_time.desc"},
	}
	if err := db.getRows(ctx, "reservations", q, &rows); err != nil {
		return nil, fmt.Errorf("list user reservations: %w", err)
	}
	out := make([]models.ReservationWithSpace, 0, len(rows))
	for _, row := range rows {
		item := models.ReservationWithSpace{Reservation: row.Reservation}
		normalizeReservation(&item.Reservation)
		if row.Spaces != nil {
			item.SpaceName = row.Spaces.Name
			item.SpaceLocation = row.Spaces.Location
		}
		out = append(out, item)
	}
	return out, nil
}

// CancelReservation 条件更新：只取消本人的 confirmed 预约
func (db *SupabaseDatabase) CancelReservation(ctx context.Context, id, userID string) error {
	q := url.Values{"id": {eq(id)}, "user_id": {eq(userID)}, "status": {eq(string(models.ReservationConfirmed))}}
	n, err := db.mutateRows(ctx, http.MethodPatch, "reservations", q, map[string]string{"status": string(models.ReservationCancelled)})
	if err != nil {
		return fmt.Errorf("cancel reservation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("confirmed reservation %s: %w", id, ErrNotFound)
	}
	return nil
}

// HealthCheck 健康检查
func (db *SupabaseDatabase) HealthCheck(ctx context.Context) error {
	_, err := db.makeRequest(ctx, http.MethodGet, "/spaces?select=id&limit=1", nil)
	return err
}

// Close Supabase REST 无需关闭
func (db *SupabaseDatabase) Close() error {
	return nil
}

// isAPIConflict 唯一约束冲突
func isAPIConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
