package subscribe

import (
	"context"
	"sync"
	"time"

	"PPanel/module/account/model"
	"PPanel/service/connlog"
)

// fakeStore 内存版 AccountStore，条件写语义与 PgStore 对齐。
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	direct   map[string][]model.Assignment
	grouped  map[string][]model.Assignment

	activateCalls int
	statusWrites  []string

	findErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[string]*model.Account{},
		direct:   map[string][]model.Assignment{},
		grouped:  map[string][]model.Assignment{},
	}
}

func (f *fakeStore) put(a *model.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.accounts[a.AccountID] = &cp
}

func (f *fakeStore) FindAccountByToken(_ context.Context, token string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, a := range f.accounts {
		if a.Token == token {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindAccountByID(_ context.Context, accountID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) FindDirectAssignments(_ context.Context, accountID string) ([]model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Assignment(nil), f.direct[accountID]...), nil
}

func (f *fakeStore) FindGroupAssignments(_ context.Context, accountID string) ([]model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Assignment(nil), f.grouped[accountID]...), nil
}

func (f *fakeStore) UpdateLifecycle(_ context.Context, accountID string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[accountID]; ok && a.Status == model.StatusActive {
		a.Status = status
		f.statusWrites = append(f.statusWrites, status)
	}
	return nil
}

func (f *fakeStore) ActivateIfPending(_ context.Context, accountID string, activatedAt, expireTime time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activateCalls++
	a, ok := f.accounts[accountID]
	if !ok || !a.OnHold || a.ActivatedAt != nil {
		return false, nil
	}
	at := activatedAt
	a.ActivatedAt = &at
	a.ExpireTime = expireTime
	return true, nil
}

// fakeLog 内存版 ConnLog。
type fakeLog struct {
	mu      sync.Mutex
	records []connlog.ConnRecord

	recent    connlog.RecentKeys
	recentErr error

	quality    map[string]float64
	qualityErr error

	appendErr error
}

func newFakeLog() *fakeLog {
	return &fakeLog{
		recent: connlog.RecentKeys{
			Addresses: map[string]struct{}{},
			Devices:   map[string]struct{}{},
		},
	}
}

func (f *fakeLog) Append(_ context.Context, rec *connlog.ConnRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeLog) QueryRecent(_ context.Context, _ string, _ time.Time) (connlog.RecentKeys, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return connlog.RecentKeys{}, f.recentErr
	}
	return f.recent, nil
}

func (f *fakeLog) QualityByProtocol(_ context.Context, _ string, _ time.Duration) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.qualityErr != nil {
		return nil, f.qualityErr
	}
	return f.quality, nil
}

func (f *fakeLog) outcomes() []connlog.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]connlog.Outcome, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r.Outcome)
	}
	return out
}
