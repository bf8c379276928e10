package subscribe

import (
	"context"
	"errors"
	"testing"
	"time"

	"PPanel/module/account/model"
	"PPanel/service/connlog"
	errs "PPanel/tools/errs"
)

func newAdmissionUnderTest(log connlog.ConnLog) *Admission {
	return NewAdmission(NewTracker(10*time.Minute), NewTracker(10*time.Minute), log, 10*time.Minute)
}

func limitedAccount(ipLimit, deviceLimit int) *model.Account {
	return &model.Account{
		AccountID:   "u1",
		Status:      model.StatusActive,
		IPLimit:     ipLimit,
		DeviceLimit: deviceLimit,
	}
}

func reqFrom(addr, device string) RequestContext {
	return RequestContext{SourceAddr: addr, Fingerprint: device, UserAgent: "test-agent"}
}

var testCands = []Candidate{{EndpointID: "ep-a", Protocol: "vless", Priority: 10}}

func TestAdmitFirstUseTracksAddress(t *testing.T) {
	log := newFakeLog()
	adm := newAdmissionUnderTest(log)
	acct := limitedAccount(1, 0)

	if err := adm.Admit(context.Background(), acct, testCands, reqFrom("1.2.3.4:5000", "dev-1")); err != nil {
		t.Fatalf("first use must be admitted: %v", err)
	}
	if _, ok := adm.ipTracker.ActiveKeys("u1")["1.2.3.4"]; !ok {
		t.Fatal("admitted address missing from activeKeys")
	}
	if got := log.outcomes(); len(got) != 1 || got[0] != connlog.OutcomeConnect {
		t.Fatalf("expected one connect record, got %v", got)
	}
}

func TestAdmitIdempotentNoDoubleSlot(t *testing.T) {
	log := newFakeLog()
	adm := newAdmissionUnderTest(log)
	acct := limitedAccount(1, 1)
	rc := reqFrom("1.2.3.4:5000", "dev-1")

	if err := adm.Admit(context.Background(), acct, testCands, rc); err != nil {
		t.Fatalf("first admit failed: %v", err)
	}
	// 同地址同设备立刻再来：不占新槽位，也不能被拒
	if err := adm.Admit(context.Background(), acct, testCands, rc); err != nil {
		t.Fatalf("repeat admit for known keys must pass: %v", err)
	}
	if n := len(adm.ipTracker.ActiveKeys("u1")); n != 1 {
		t.Fatalf("known address consumed a second slot: %d", n)
	}
	// 重复轮询不重复落 connect 日志
	if got := log.outcomes(); len(got) != 1 {
		t.Fatalf("repeat poll should not append another connect record, got %v", got)
	}
}

func TestAdmitIPCeilingThirdAddressRejected(t *testing.T) {
	log := newFakeLog()
	adm := newAdmissionUnderTest(log)
	acct := limitedAccount(2, 0)

	if err := adm.Admit(context.Background(), acct, testCands, reqFrom("1.1.1.1:1", "dev-1")); err != nil {
		t.Fatalf("addr 1 rejected: %v", err)
	}
	if err := adm.Admit(context.Background(), acct, testCands, reqFrom("2.2.2.2:1", "dev-1")); err != nil {
		t.Fatalf("addr 2 rejected: %v", err)
	}
	err := adm.Admit(context.Background(), acct, testCands, reqFrom("3.3.3.3:1", "dev-1"))
	if err == nil || !errs.ErrIPLimitExceeded.Is(err) {
		t.Fatalf("third distinct address must hit IpLimitExceeded, got %v", err)
	}

	outcomes := log.outcomes()
	rejects := 0
	for _, o := range outcomes {
		if o == connlog.OutcomeRejectIP {
			rejects++
		}
	}
	if rejects != 1 {
		t.Fatalf("expected exactly one reject_ip_limit record, got %v", outcomes)
	}
}

func TestAdmitDeviceCeiling(t *testing.T) {
	adm := newAdmissionUnderTest(newFakeLog())
	acct := limitedAccount(0, 1)

	if err := adm.Admit(context.Background(), acct, testCands, reqFrom("1.1.1.1:1", "dev-1")); err != nil {
		t.Fatalf("device 1 rejected: %v", err)
	}
	err := adm.Admit(context.Background(), acct, testCands, reqFrom("1.1.1.1:1", "dev-2"))
	if err == nil || !errs.ErrDeviceLimitExceeded.Is(err) {
		t.Fatalf("second device must hit DeviceLimitExceeded, got %v", err)
	}
}

func TestAdmitZeroCeilingUnlimited(t *testing.T) {
	adm := newAdmissionUnderTest(newFakeLog())
	acct := limitedAccount(0, 0)

	for i, addr := range []string{"1.1.1.1:1", "2.2.2.2:1", "3.3.3.3:1", "4.4.4.4:1"} {
		if err := adm.Admit(context.Background(), acct, testCands, reqFrom(addr, "dev-1")); err != nil {
			t.Fatalf("unlimited account rejected at %d: %v", i, err)
		}
	}
}

func TestAdmitRecentWindowCoversRestart(t *testing.T) {
	// 模拟重启：Tracker 全空，但日志近窗口里已有两个地址
	log := newFakeLog()
	log.recent.Addresses["1.1.1.1"] = struct{}{}
	log.recent.Addresses["2.2.2.2"] = struct{}{}

	adm := newAdmissionUnderTest(log)
	acct := limitedAccount(2, 0)

	// 已知地址续期放行
	if err := adm.Admit(context.Background(), acct, testCands, reqFrom("1.1.1.1:9", "dev-1")); err != nil {
		t.Fatalf("known address after restart must pass: %v", err)
	}
	// 新地址触顶
	err := adm.Admit(context.Background(), acct, testCands, reqFrom("3.3.3.3:9", "dev-1"))
	if err == nil || !errs.ErrIPLimitExceeded.Is(err) {
		t.Fatalf("cold tracker must not over-admit, got %v", err)
	}
}

func TestAdmitRejectionSurvivesLogFailure(t *testing.T) {
	log := newFakeLog()
	log.recent.Addresses["1.1.1.1"] = struct{}{}
	log.recent.Addresses["2.2.2.2"] = struct{}{}
	log.appendErr = errors.New("mongo down")

	adm := newAdmissionUnderTest(log)
	acct := limitedAccount(2, 0)

	err := adm.Admit(context.Background(), acct, testCands, reqFrom("3.3.3.3:9", "dev-1"))
	if err == nil || !errs.ErrIPLimitExceeded.Is(err) {
		t.Fatalf("log failure must not mask rejection, got %v", err)
	}
}

func TestAdmitEmptySourceAddrExemptFromIPLimit(t *testing.T) {
	log := newFakeLog()
	log.recent.Addresses["9.9.9.9"] = struct{}{} // 上限已被占满

	adm := newAdmissionUnderTest(log)
	acct := limitedAccount(1, 0)

	// 解析不出源地址：不参与IP上限，窗口内反复来也不会被拒
	for i := 0; i < 2; i++ {
		if err := adm.Admit(context.Background(), acct, testCands, reqFrom("", "dev-1")); err != nil {
			t.Fatalf("addressless request %d rejected: %v", i, err)
		}
	}
	if _, ok := adm.ipTracker.ActiveKeys("u1")[""]; ok {
		t.Fatal("empty address must not be tracked as a key")
	}
}

func TestAdmitRecentQueryFailureDegradesToTracker(t *testing.T) {
	log := newFakeLog()
	log.recentErr = errors.New("redis and mongo down")

	adm := newAdmissionUnderTest(log)
	acct := limitedAccount(1, 0)

	// 查询失败退化为只看 Tracker：首个请求仍放行（软上限）
	if err := adm.Admit(context.Background(), acct, testCands, reqFrom("1.1.1.1:9", "dev-1")); err != nil {
		t.Fatalf("degraded admission should still work: %v", err)
	}
	// Tracker 已记录，第二个地址照样拦
	err := adm.Admit(context.Background(), acct, testCands, reqFrom("2.2.2.2:9", "dev-1"))
	if err == nil || !errs.ErrIPLimitExceeded.Is(err) {
		t.Fatalf("tracker-only enforcement broken, got %v", err)
	}
}
