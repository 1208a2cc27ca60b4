package policy

import (
	"strings"
	"testing"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

func TestBuildSnapshotSkipsBadPolicy(t *testing.T) {
	set := &model.PolicySet{
		Policies: []model.Policy{
			{ID: 1, Name: "broken", Priority: 1, MACAddress: "zz", IsActive: true},
			{ID: 2, Name: "good", Priority: 2, IsActive: true},
		},
		UnlangPolicies: []model.UnlangPolicy{{
			Policy:             model.Policy{ID: 3, Priority: 0, IsActive: true},
			ConditionAttribute: "User-Name",
			ConditionOperator:  "regex",
			ConditionValue:     "(",
		}},
	}
	snap := BuildSnapshot(set, 1, monday)

	if len(snap.ConfigErrors()) != 2 {
		t.Fatalf("len(ConfigErrors) = %d, want 2", len(snap.ConfigErrors()))
	}
	res := snap.Match(&Request{}, monday)
	if res.PolicyName() != "good" {
		t.Errorf("winner = %q, want %q", res.PolicyName(), "good")
	}
}

func TestBuildSnapshotDuplicateID(t *testing.T) {
	set := &model.PolicySet{
		Policies: []model.Policy{
			{ID: 1, Name: "a", IsActive: true},
			{ID: 1, Name: "b", IsActive: true},
		},
	}
	snap := BuildSnapshot(set, 1, monday)
	if len(snap.Policies()) != 1 {
		t.Errorf("len(Policies) = %d, want 1", len(snap.Policies()))
	}
	if len(snap.ConfigErrors()) != 1 {
		t.Errorf("len(ConfigErrors) = %d, want 1", len(snap.ConfigErrors()))
	}
}

func TestBuildSnapshotBypass(t *testing.T) {
	policies := []model.Policy{
		{ID: 1, Name: "registered", IsActive: true},
		{ID: 2, Name: "guest", IsActive: true},
		{ID: 3, Name: "inactive", IsActive: false},
	}

	tests := []struct {
		name        string
		configs     []model.MacBypassConfig
		wantEnabled bool
		wantErrors  int
	}{
		{
			name:        "no config",
			wantEnabled: false,
		},
		{
			name: "single whitelist",
			configs: []model.MacBypassConfig{{
				ID: 1, BypassMode: "Whitelist", MACAddresses: []string{"AA-BB-CC-DD-EE-FF"},
				RegisteredPolicyID: int64Ptr(1), UnregisteredPolicyID: int64Ptr(2), IsActive: true,
			}},
			wantEnabled: true,
		},
		{
			name: "inactive ignored",
			configs: []model.MacBypassConfig{
				{ID: 1, BypassMode: "whitelist", IsActive: true},
				{ID: 2, BypassMode: "blacklist", IsActive: false},
			},
			wantEnabled: true,
		},
		{
			name: "multiple active disables gate",
			configs: []model.MacBypassConfig{
				{ID: 1, BypassMode: "whitelist", IsActive: true},
				{ID: 2, BypassMode: "blacklist", IsActive: true},
			},
			wantEnabled: false,
			wantErrors:  1,
		},
		{
			name:        "unknown mode",
			configs:     []model.MacBypassConfig{{ID: 1, BypassMode: "greylist", IsActive: true}},
			wantEnabled: false,
			wantErrors:  1,
		},
		{
			name:        "invalid mac",
			configs:     []model.MacBypassConfig{{ID: 1, BypassMode: "blacklist", MACAddresses: []string{"bogus"}, IsActive: true}},
			wantEnabled: false,
			wantErrors:  1,
		},
		{
			name:        "reference to inactive policy",
			configs:     []model.MacBypassConfig{{ID: 1, BypassMode: "whitelist", RegisteredPolicyID: int64Ptr(3), IsActive: true}},
			wantEnabled: false,
			wantErrors:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := &model.PolicySet{Policies: policies, MacBypassConfigs: tt.configs}
			snap := BuildSnapshot(set, 1, monday)
			if got := snap.Bypass() != nil; got != tt.wantEnabled {
				t.Errorf("bypass enabled = %v, want %v", got, tt.wantEnabled)
			}
			if len(snap.ConfigErrors()) != tt.wantErrors {
				t.Errorf("len(ConfigErrors) = %d, want %d", len(snap.ConfigErrors()), tt.wantErrors)
			}
		})
	}
}

func TestBuildSnapshotBypassResolvesPolicies(t *testing.T) {
	set := &model.PolicySet{
		Policies: []model.Policy{{ID: 1, Name: "registered", IsActive: true}},
		MacBypassConfigs: []model.MacBypassConfig{{
			ID: 5, BypassMode: "whitelist", MACAddresses: []string{"AABBCCDDEEFF"},
			RegisteredPolicyID: int64Ptr(1), IsActive: true,
		}},
	}
	snap := BuildSnapshot(set, 1, monday)

	b := snap.Bypass()
	if b == nil {
		t.Fatal("expected bypass config")
	}
	if !b.Contains("aa:bb:cc:dd:ee:ff") {
		t.Error("bypass MAC list should be normalized")
	}
	if b.Registered == nil || b.Registered.Name != "registered" {
		t.Errorf("Registered = %+v", b.Registered)
	}
	if b.Unregistered != nil {
		t.Error("Unregistered should be nil")
	}
}

func TestSnapshotSummary(t *testing.T) {
	set := &model.PolicySet{
		Policies:       []model.Policy{{ID: 1, IsActive: true}, {ID: 2, MACAddress: "x", IsActive: true}},
		UnlangPolicies: []model.UnlangPolicy{{Policy: model.Policy{ID: 1, IsActive: true}}},
		MacBypassConfigs: []model.MacBypassConfig{
			{ID: 1, BypassMode: "blacklist", IsActive: true},
		},
	}
	snap := BuildSnapshot(set, 42, monday)
	sum := snap.Summary()

	if sum.Version != 42 {
		t.Errorf("Version = %d, want 42", sum.Version)
	}
	if sum.Policies != 1 || sum.UnlangPolicies != 1 {
		t.Errorf("counts = %d/%d, want 1/1", sum.Policies, sum.UnlangPolicies)
	}
	if !sum.BypassEnabled || sum.BypassMode != "blacklist" {
		t.Errorf("bypass = %v/%q", sum.BypassEnabled, sum.BypassMode)
	}
	if len(sum.ConfigErrors) != 1 || !strings.Contains(sum.ConfigErrors[0], "mac_address") {
		t.Errorf("ConfigErrors = %v", sum.ConfigErrors)
	}
}

func TestBuildSnapshotNilSet(t *testing.T) {
	snap := BuildSnapshot(nil, 0, monday)
	if len(snap.Policies()) != 0 || snap.Bypass() != nil {
		t.Error("nil set should produce an empty snapshot")
	}
	if snap.Match(&Request{}, monday).Matched {
		t.Error("empty snapshot must not match")
	}
}
