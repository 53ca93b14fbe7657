package activitylogs

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/db"
	"github.com/sqlc-dev/pqtype"
)

type Log struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateActivityLogParams struct {
	UserID     *int64
	Action     string
	EntityType string
	EntityID   string
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
}

// Recorder persists who did what to which ledger entity.
type Recorder interface {
	Create(ctx context.Context, params CreateActivityLogParams) (Log, error)
	GetByUser(ctx context.Context, userID int64, limit, offset int32) ([]Log, error)
	GetRecent(ctx context.Context, limit, offset int32) ([]Log, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ActivityLog struct {
	store *db.Store
}

func NewActivityLog(store *db.Store) *ActivityLog {
	return &ActivityLog{
		store: store,
	}
}

const logColumns = `id, user_id, action, entity_type, entity_id, ip_address, user_agent, created_at`

func (a *ActivityLog) Create(ctx context.Context, params CreateActivityLogParams) (Log, error) {
	row := a.store.DB.QueryRowContext(ctx, `
		INSERT INTO activity_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+logColumns,
		toNullInt64(params.UserID),
		params.Action,
		toNullString(params.EntityType),
		toNullString(params.EntityID),
		toInet(params.IPAddress),
		toNullString(params.UserAgent),
		params.CreatedAt,
	)
	l, err := scanLog(row)
	if err != nil {
		return Log{}, fmt.Errorf("create activity log: %w", err)
	}
	return l, nil
}

func (a *ActivityLog) GetByUser(ctx context.Context, userID int64, limit, offset int32) ([]Log, error) {
	return a.query(ctx, `SELECT `+logColumns+` FROM activity_logs WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
}

func (a *ActivityLog) GetRecent(ctx context.Context, limit, offset int32) ([]Log, error) {
	return a.query(ctx, `SELECT `+logColumns+` FROM activity_logs
		ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (a *ActivityLog) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.store.DB.ExecContext(ctx, `DELETE FROM activity_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete activity logs: %w", err)
	}
	return res.RowsAffected()
}

func (a *ActivityLog) query(ctx context.Context, query string, args ...any) ([]Log, error) {
	rows, err := a.store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity logs: %w", err)
	}
	defer rows.Close()

	out := make([]Log, 0)
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (Log, error) {
	var (
		l          Log
		userID     sql.NullInt64
		entityType sql.NullString
		entityID   sql.NullString
		ip         pqtype.Inet
		userAgent  sql.NullString
	)
	if err := row.Scan(&l.ID, &userID, &l.Action, &entityType, &entityID, &ip, &userAgent, &l.CreatedAt); err != nil {
		return Log{}, err
	}
	if userID.Valid {
		l.UserID = &userID.Int64
	}
	l.EntityType = entityType.String
	l.EntityID = entityID.String
	l.UserAgent = userAgent.String
	l.IPAddress = fromInet(ip)
	return l, nil
}

// Helper functions
func toNullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toInet(ip string) pqtype.Inet {
	if ip == "" {
		return pqtype.Inet{Valid: false}
	}

	// Try parsing as CIDR (e.g., "192.168.1.0/24")
	if _, ipNet, err := net.ParseCIDR(ip); err == nil {
		return pqtype.Inet{
			IPNet: *ipNet,
			Valid: true,
		}
	}

	// Single addresses get a full mask
	if parsedIP := net.ParseIP(ip); parsedIP != nil {
		var mask net.IPMask
		if parsedIP.To4() != nil {
			parsedIP = parsedIP.To4()
			mask = net.CIDRMask(32, 32)
		} else {
			mask = net.CIDRMask(128, 128)
		}
		return pqtype.Inet{
			IPNet: net.IPNet{IP: parsedIP, Mask: mask},
			Valid: true,
		}
	}

	return pqtype.Inet{Valid: false}
}

func fromInet(ip pqtype.Inet) string {
	if !ip.Valid {
		return ""
	}
	if ones, bits := ip.IPNet.Mask.Size(); ones == bits {
		return ip.IPNet.IP.String()
	}
	return ip.IPNet.String()
}
