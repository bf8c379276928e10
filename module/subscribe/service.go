package subscribe

import (
	"context"

	"PPanel/module/account/model"
	"PPanel/module/account/store"
	errs "PPanel/tools/errs"
	security "PPanel/tools/security"
)

// Service 订阅解析编排：令牌 -> 生命周期 -> 候选 -> 准入。
type Service struct {
	store     store.AccountStore
	lifecycle *Lifecycle
	resolver  *Resolver
	admission *Admission
	tokenOpts security.Options
}

func NewService(st store.AccountStore, lifecycle *Lifecycle, resolver *Resolver,
	admission *Admission, tokenOpts security.Options) *Service {
	return &Service{
		store:     st,
		lifecycle: lifecycle,
		resolver:  resolver,
		admission: admission,
		tokenOpts: tokenOpts,
	}
}

// Resolve 一次订阅请求的完整裁决。
// 成功返回有序候选列表和（可能被更新过生命周期字段的）账号。
func (s *Service) Resolve(ctx context.Context, token string, rc RequestContext) ([]Candidate, *model.Account, error) {
	acct, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if acct == nil {
		return nil, nil, errs.ErrSubscriptionNotFound.Wrap()
	}

	acct, err = s.lifecycle.Check(ctx, acct)
	if err != nil {
		return nil, nil, err
	}

	cands, err := s.resolver.Resolve(ctx, acct)
	if err != nil {
		return nil, nil, err
	}

	if err := s.admission.Admit(ctx, acct, cands, rc); err != nil {
		return nil, nil, err
	}

	return cands, acct, nil
}

// findByToken 先按 JWT 解（新订阅链接带签名），
// 解不动按明文令牌查库（兼容旧链接）。
func (s *Service) findByToken(ctx context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, nil
	}
	if security.LooksLikeJWT(token) {
		if accountID, err := security.ParseSubToken(s.tokenOpts, token); err == nil {
			return s.store.FindAccountByID(ctx, accountID)
		}
		// 签名不过的三段式令牌不再回退查库：别让伪造JWT撞明文令牌
		return nil, nil
	}
	return s.store.FindAccountByToken(ctx, token)
}
