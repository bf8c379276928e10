package store

import (
	"context"
	"errors"
	"time"

	"PPanel/module/account/model"
	errs "PPanel/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore AccountStore 的 Postgres 实现。
//
// 表结构（由面板的管理侧建表/迁移，这里只消费）：
//
//	accounts(account_id, token, status, create_time, expire_time,
//	         on_hold, activated_at, upload_bytes, download_bytes,
//	         data_quota, ip_limit, device_limit)
//	endpoints(endpoint_id, enabled, security, protocol)
//	account_endpoints(account_id, endpoint_id, enabled, priority, create_time)
//	groups(group_id, disabled)
//	account_groups(account_id, group_id)
//	group_endpoints(group_id, endpoint_id, priority, create_time)
//
// priority / 关系表的 create_time 是历史遗留的文本列，原样带回，
// 归一化交给 resolver。
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const accountColumns = `account_id, token, status, create_time, expire_time,
	on_hold, activated_at, upload_bytes, download_bytes, data_quota,
	ip_limit, device_limit`

func (s *PgStore) scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		a          model.Account
		expireTime *time.Time
	)
	err := row.Scan(&a.AccountID, &a.Token, &a.Status, &a.CreateTime, &expireTime,
		&a.OnHold, &a.ActivatedAt, &a.UploadBytes, &a.DownloadBytes, &a.DataQuota,
		&a.IPLimit, &a.DeviceLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errs.WrapMsg(err, "scan account")
	}
	if expireTime != nil {
		a.ExpireTime = *expireTime
	}
	return &a, nil
}

func (s *PgStore) FindAccountByToken(ctx context.Context, token string) (*model.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE token = $1`, token)
	return s.scanAccount(row)
}

func (s *PgStore) FindAccountByID(ctx context.Context, accountID string) (*model.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_id = $1`, accountID)
	return s.scanAccount(row)
}

// FindDirectAssignments 指派行未启用的直接过滤掉；节点开关带回由 resolver 判。
func (s *PgStore) FindDirectAssignments(ctx context.Context, accountID string) ([]model.Assignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ae.endpoint_id, e.enabled, ae.enabled, ae.priority, COALESCE(ae.create_time, ''),
		       e.security, e.protocol
		FROM account_endpoints ae
		JOIN endpoints e ON e.endpoint_id = ae.endpoint_id
		WHERE ae.account_id = $1`, accountID)
	if err != nil {
		return nil, errs.WrapMsg(err, "query direct assignments", "account", accountID)
	}
	defer rows.Close()
	return scanAssignments(rows, model.OriginDirect)
}

// FindGroupAssignments 禁用的组整组排除；组内指派视为启用。
// 同一账号重复加组靠 DISTINCT 去重，避免重复计数。
func (s *PgStore) FindGroupAssignments(ctx context.Context, accountID string) ([]model.Assignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ge.endpoint_id, e.enabled, TRUE, ge.priority, COALESCE(ge.create_time, ''),
		       e.security, e.protocol
		FROM account_groups ag
		JOIN groups g ON g.group_id = ag.group_id AND g.disabled = FALSE
		JOIN group_endpoints ge ON ge.group_id = ag.group_id
		JOIN endpoints e ON e.endpoint_id = ge.endpoint_id
		WHERE ag.account_id = $1`, accountID)
	if err != nil {
		return nil, errs.WrapMsg(err, "query group assignments", "account", accountID)
	}
	defer rows.Close()
	return scanAssignments(rows, model.OriginGroup)
}

func scanAssignments(rows pgx.Rows, origin model.Origin) ([]model.Assignment, error) {
	var out []model.Assignment
	for rows.Next() {
		var (
			a        model.Assignment
			security int
		)
		if err := rows.Scan(&a.EndpointID, &a.EndpointEnabled, &a.Enabled,
			&a.RawPriority, &a.RawCreateTime, &security, &a.Protocol); err != nil {
			return nil, errs.WrapMsg(err, "scan assignment")
		}
		a.Security = model.SecurityClass(security)
		a.Origin = origin
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.WrapMsg(err, "assignment rows")
	}
	return out, nil
}

// UpdateLifecycle 只允许从 active 出发，保证状态迁移单向。
func (s *PgStore) UpdateLifecycle(ctx context.Context, accountID string, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts SET status = $2
		WHERE account_id = $1 AND status = $3`,
		accountID, status, model.StatusActive)
	if err != nil {
		return errs.WrapMsg(err, "update lifecycle", "account", accountID, "status", status)
	}
	return nil
}

// ActivateIfPending 条件写起表：跨进程也只有一个赢家。
func (s *PgStore) ActivateIfPending(ctx context.Context, accountID string, activatedAt, expireTime time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET activated_at = $2, expire_time = $3
		WHERE account_id = $1 AND on_hold = TRUE AND activated_at IS NULL`,
		accountID, activatedAt, expireTime)
	if err != nil {
		return false, errs.WrapMsg(err, "activate account", "account", accountID)
	}
	return tag.RowsAffected() > 0, nil
}
