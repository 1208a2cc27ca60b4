package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/bypass"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/engine"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/mocks"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/udn"
	"github.com/oyaguma3/wpn-authz/pkg/logging"
	"github.com/oyaguma3/wpn-authz/pkg/model"
	"go.uber.org/mock/gomock"
)

// テスト用定数
const (
	testMAC     = "aa:bb:cc:dd:ee:01"
	testTraceID = "test-trace-id-123"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type staticSource struct {
	snap *policy.Snapshot
}

func (s staticSource) Current() *policy.Snapshot { return s.snap }

func int64Ptr(v int64) *int64 { return &v }

func newSnapshot(set *model.PolicySet) staticSource {
	return staticSource{snap: policy.BuildSnapshot(set, 1, testNow)}
}

func newEngine(src engine.SnapshotSource, pool udn.Pool, usage policy.UsageRecorder) *engine.Engine {
	return engine.New(src, pool, usage,
		engine.WithClock(func() time.Time { return testNow }),
		engine.WithMasker(logging.NewMasker(true)),
	)
}

func testContext() context.Context {
	return logging.ContextWithTraceID(context.Background(), testTraceID)
}

func assignment(mac string, id int) *model.UDNAssignment {
	return &model.UDNAssignment{MACAddress: mac, UDNID: id, IsActive: true}
}

func lastAttr(d engine.Decision) model.ReplyAttribute {
	if len(d.ReplyAttributes) == 0 {
		return model.ReplyAttribute{}
	}
	return d.ReplyAttributes[len(d.ReplyAttributes)-1]
}

func TestAuthorizeAcceptWithUDN(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{{
			ID: 1, Name: "staff", Priority: 1, IsActive: true, VLANID: 100,
			ReplyAttributes: []model.ReplyAttribute{{Attribute: "Filter-Id", Operator: "=", Value: "staff"}},
		}},
	})

	mockPool := mocks.NewMockPool(ctrl)
	mockPool.EXPECT().Assign(gomock.Any(), testMAC, udn.Metadata{}).
		Return(assignment(testMAC, 42), nil)

	mockUsage := mocks.NewMockUsageRecorder(ctrl)
	mockUsage.EXPECT().RecordUsage(gomock.Any(), policy.Ref{Kind: policy.KindStandard, ID: 1}, testNow).
		Return(nil)

	e := newEngine(src, mockPool, mockUsage)
	d := e.Authorize(testContext(), &policy.Request{Username: "alice", MACAddress: "AA-BB-CC-DD-EE-01"})

	if !d.Accept {
		t.Fatalf("Accept = false, reason = %q", d.Reason)
	}
	if d.UDNID != 42 {
		t.Errorf("UDNID = %d, want 42", d.UDNID)
	}
	if d.Source != engine.SourceMatcher {
		t.Errorf("Source = %q, want %q", d.Source, engine.SourceMatcher)
	}
	if d.Policy != "policy:1" {
		t.Errorf("Policy = %q, want %q", d.Policy, "policy:1")
	}
	if d.ReplyAttributes[0].Attribute != "Filter-Id" {
		t.Errorf("first attribute = %q, want Filter-Id", d.ReplyAttributes[0].Attribute)
	}
	last := lastAttr(d)
	if last.Attribute != engine.AttrCiscoAVPair || last.Value != "udn:private-group-id=42" {
		t.Errorf("last attribute = %+v, want Cisco-AVPair udn:private-group-id=42", last)
	}
}

func TestAuthorizeNoPolicyMatched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{{ID: 1, Name: "bob-only", Username: "bob", IsActive: true}},
	})
	mockPool := mocks.NewMockPool(ctrl)
	mockUsage := mocks.NewMockUsageRecorder(ctrl)

	e := newEngine(src, mockPool, mockUsage)
	d := e.Authorize(testContext(), &policy.Request{Username: "alice", MACAddress: testMAC})

	if d.Accept {
		t.Fatal("expected reject")
	}
	if d.Reason != engine.ReasonNoPolicyMatched {
		t.Errorf("Reason = %q, want %q", d.Reason, engine.ReasonNoPolicyMatched)
	}
	if len(d.ReplyAttributes) != 0 {
		t.Errorf("reject must not carry reply attributes: %+v", d.ReplyAttributes)
	}
}

func TestAuthorizeEmptySnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEngine(newSnapshot(&model.PolicySet{}), mocks.NewMockPool(ctrl), nil)
	d := e.Authorize(testContext(), &policy.Request{MACAddress: testMAC})

	if d.Accept || d.Reason != engine.ReasonNoPolicyMatched {
		t.Errorf("got %+v, want reject %q", d, engine.ReasonNoPolicyMatched)
	}
}

func TestAuthorizeBlacklisted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{{ID: 1, Name: "open", IsActive: true}},
		MacBypassConfigs: []model.MacBypassConfig{{
			ID: 1, Name: "blocked", BypassMode: model.BypassModeBlacklist,
			MACAddresses: []string{testMAC}, IsActive: true,
		}},
	})
	mockPool := mocks.NewMockPool(ctrl)
	mockUsage := mocks.NewMockUsageRecorder(ctrl)

	e := newEngine(src, mockPool, mockUsage)
	d := e.Authorize(testContext(), &policy.Request{MACAddress: "AABB.CCDD.EE01"})

	if d.Accept {
		t.Fatal("expected reject")
	}
	if d.Reason != bypass.ReasonMACBlacklisted {
		t.Errorf("Reason = %q, want %q", d.Reason, bypass.ReasonMACBlacklisted)
	}
	if d.Source != engine.SourceBypass {
		t.Errorf("Source = %q, want %q", d.Source, engine.SourceBypass)
	}
}

func TestAuthorizeWhitelistUsesRegisteredPolicy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{
			{ID: 1, Name: "general", Priority: 1, IsActive: true},
			{ID: 2, Name: "registered", Priority: 50, IsActive: true, VLANID: 20},
		},
		MacBypassConfigs: []model.MacBypassConfig{{
			ID: 1, Name: "known-devices", BypassMode: model.BypassModeWhitelist,
			MACAddresses: []string{testMAC}, RegisteredPolicyID: int64Ptr(2), IsActive: true,
		}},
	})

	mockPool := mocks.NewMockPool(ctrl)
	mockPool.EXPECT().Assign(gomock.Any(), testMAC, gomock.Any()).Return(assignment(testMAC, 7), nil)
	mockUsage := mocks.NewMockUsageRecorder(ctrl)
	mockUsage.EXPECT().RecordUsage(gomock.Any(), policy.Ref{Kind: policy.KindStandard, ID: 2}, gomock.Any()).Return(nil)

	e := newEngine(src, mockPool, mockUsage)
	d := e.Authorize(testContext(), &policy.Request{MACAddress: testMAC})

	if !d.Accept {
		t.Fatalf("expected accept, reason = %q", d.Reason)
	}
	if d.PolicyName != "registered" {
		t.Errorf("PolicyName = %q, want %q", d.PolicyName, "registered")
	}
	if d.Source != engine.SourceBypass {
		t.Errorf("Source = %q, want %q", d.Source, engine.SourceBypass)
	}
}

func TestAuthorizeUDNFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{"プール枯渇", fmt.Errorf("assign: %w", udn.ErrPoolExhausted), engine.ReasonNoUDNAvailable},
		{"ストア障害", errors.New("valkey down"), engine.ReasonNoUDNAvailable},
		{"キャンセル", context.Canceled, engine.ReasonRequestCancelled},
		{"タイムアウト", context.DeadlineExceeded, engine.ReasonRequestCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			src := newSnapshot(&model.PolicySet{
				Policies: []model.Policy{{ID: 1, Name: "open", IsActive: true}},
			})
			mockPool := mocks.NewMockPool(ctrl)
			mockPool.EXPECT().Assign(gomock.Any(), testMAC, gomock.Any()).Return(nil, tt.err)
			mockUsage := mocks.NewMockUsageRecorder(ctrl)
			mockUsage.EXPECT().RecordUsage(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

			e := newEngine(src, mockPool, mockUsage)
			d := e.Authorize(testContext(), &policy.Request{MACAddress: testMAC})

			if d.Accept {
				t.Fatal("expected reject")
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if d.Policy != "policy:1" {
				t.Errorf("Policy = %q, want the matched policy to be reported", d.Policy)
			}
		})
	}
}

func TestAuthorizeCancelledBeforeStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{{ID: 1, Name: "open", IsActive: true}},
	})
	e := newEngine(src, mocks.NewMockPool(ctrl), mocks.NewMockUsageRecorder(ctrl))

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	d := e.Authorize(ctx, &policy.Request{MACAddress: testMAC})
	if d.Accept || d.Reason != engine.ReasonRequestCancelled {
		t.Errorf("got %+v, want reject %q", d, engine.ReasonRequestCancelled)
	}
}

func TestAuthorizeWithoutMACSkipsUDN(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{{ID: 1, Name: "open", IsActive: true, SessionTimeout: 3600}},
	})
	// Assignは呼ばれない
	mockPool := mocks.NewMockPool(ctrl)

	e := newEngine(src, mockPool, nil)
	d := e.Authorize(testContext(), &policy.Request{Username: "alice", CallingStation: "not-a-mac"})

	if !d.Accept {
		t.Fatalf("expected accept, reason = %q", d.Reason)
	}
	if d.UDNID != 0 {
		t.Errorf("UDNID = %d, want 0", d.UDNID)
	}
	for _, a := range d.ReplyAttributes {
		if a.Attribute == engine.AttrCiscoAVPair {
			t.Errorf("unexpected UDN attribute: %+v", a)
		}
	}
}

func TestAuthorizeCallingStationAsMAC(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{{ID: 1, Name: "open", IsActive: true}},
	})
	mockPool := mocks.NewMockPool(ctrl)
	mockPool.EXPECT().Assign(gomock.Any(), testMAC, gomock.Any()).Return(assignment(testMAC, 3), nil)

	e := newEngine(src, mockPool, nil)
	d := e.Authorize(testContext(), &policy.Request{CallingStation: "AA-BB-CC-DD-EE-01"})

	if !d.Accept || d.UDNID != 3 {
		t.Errorf("got %+v, want accept with UDN 3", d)
	}
}

func TestAuthorizeUnlangRejectAction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		UnlangPolicies: []model.UnlangPolicy{{
			Policy:             model.Policy{ID: 9, Name: "deny-guests", Priority: 1, IsActive: true},
			ConditionAttribute: "User-Name",
			ConditionOperator:  "contains",
			ConditionValue:     "guest",
			ActionType:         "reject",
		}},
	})
	mockPool := mocks.NewMockPool(ctrl)
	mockUsage := mocks.NewMockUsageRecorder(ctrl)
	mockUsage.EXPECT().RecordUsage(gomock.Any(), policy.Ref{Kind: policy.KindUnlang, ID: 9}, gomock.Any()).Return(nil)

	e := newEngine(src, mockPool, mockUsage)
	d := e.Authorize(testContext(), &policy.Request{Username: "guest-01", MACAddress: testMAC})

	if d.Accept {
		t.Fatal("expected reject")
	}
	if d.Reason != engine.ReasonPolicyReject {
		t.Errorf("Reason = %q, want %q", d.Reason, engine.ReasonPolicyReject)
	}
	if d.Policy != "unlang:9" {
		t.Errorf("Policy = %q, want %q", d.Policy, "unlang:9")
	}
}

func TestAuthorizeUsageErrorIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{{ID: 1, Name: "open", IsActive: true}},
	})
	mockPool := mocks.NewMockPool(ctrl)
	mockPool.EXPECT().Assign(gomock.Any(), gomock.Any(), gomock.Any()).Return(assignment(testMAC, 5), nil)
	mockUsage := mocks.NewMockUsageRecorder(ctrl)
	mockUsage.EXPECT().RecordUsage(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("write failed"))

	e := newEngine(src, mockPool, mockUsage)
	d := e.Authorize(testContext(), &policy.Request{MACAddress: testMAC})

	if !d.Accept {
		t.Errorf("expected accept despite usage error, reason = %q", d.Reason)
	}
}

func TestAuthorizeRecoversPanic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{{ID: 1, Name: "open", IsActive: true}},
	})
	mockPool := mocks.NewMockPool(ctrl)
	mockPool.EXPECT().Assign(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, udn.Metadata) (*model.UDNAssignment, error) {
			panic("boom")
		})

	e := newEngine(src, mockPool, nil)
	d := e.Authorize(testContext(), &policy.Request{MACAddress: testMAC})

	if d.Accept || d.Reason != engine.ReasonInternalError {
		t.Errorf("got %+v, want reject %q", d, engine.ReasonInternalError)
	}
}

func TestAuthorizeNilSnapshotOrRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEngine(staticSource{}, mocks.NewMockPool(ctrl), nil)
	if d := e.Authorize(testContext(), &policy.Request{MACAddress: testMAC}); d.Reason != engine.ReasonInternalError {
		t.Errorf("nil snapshot: Reason = %q, want %q", d.Reason, engine.ReasonInternalError)
	}
	if d := e.Authorize(testContext(), nil); d.Reason != engine.ReasonInternalError {
		t.Errorf("nil request: Reason = %q, want %q", d.Reason, engine.ReasonInternalError)
	}
}

func TestAuthorizeWithMemoryPoolIsIdempotent(t *testing.T) {
	pool, err := udn.NewMemoryPool(udn.Range{Start: 2, End: 10}, func() time.Time { return testNow })
	if err != nil {
		t.Fatalf("NewMemoryPool failed: %v", err)
	}
	usage := policy.NewMemoryUsage()
	src := newSnapshot(&model.PolicySet{
		Policies: []model.Policy{{ID: 1, Name: "open", IsActive: true}},
	})
	e := newEngine(src, pool, usage)

	first := e.Authorize(testContext(), &policy.Request{MACAddress: testMAC})
	second := e.Authorize(testContext(), &policy.Request{MACAddress: "AA:BB:CC:DD:EE:01"})
	other := e.Authorize(testContext(), &policy.Request{MACAddress: "aa:bb:cc:dd:ee:02"})

	if first.UDNID != 2 || second.UDNID != 2 {
		t.Errorf("same MAC got UDN %d and %d, want 2 both times", first.UDNID, second.UDNID)
	}
	if other.UDNID != 3 {
		t.Errorf("second MAC UDN = %d, want 3", other.UDNID)
	}

	list, err := usage.ListUsage(context.Background())
	if err != nil {
		t.Fatalf("ListUsage failed: %v", err)
	}
	if len(list) != 1 || list[0].UsageCount != 3 {
		t.Errorf("usage = %+v, want one entry with count 3", list)
	}
}
