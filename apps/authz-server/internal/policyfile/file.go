// Package policyfile はYAMLファイルからポリシー関連レコードを読み込む。
// 検証環境やストア初期投入向けのpolicy.Repository実装。
package policyfile

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/oyaguma3/wpn-authz/apps/authz-server/internal/policy"
	"github.com/oyaguma3/wpn-authz/pkg/model"
	"gopkg.in/yaml.v3"
)

// Document はポリシーファイルの最上位構造
type Document struct {
	model.PolicySet `yaml:",inline"`

	NetworkAccessDevices []model.NetworkAccessDevice `yaml:"network_access_devices"`
}

// Parse はYAMLを解析する。
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}
	return &doc, nil
}

// Load はファイルを読み込んで解析する。
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Repository はLoadRecordsのたびにファイルを再読み込みする。
type Repository struct {
	path string
}

var _ policy.Repository = (*Repository)(nil)

// NewRepository は新しいRepositoryを生成する。
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

// LoadRecords はファイル内のポリシー関連レコードを返す。
func (r *Repository) LoadRecords(ctx context.Context) (*model.PolicySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := Load(r.path)
	if err != nil {
		return nil, err
	}
	set := doc.PolicySet
	return &set, nil
}

// Directory はファイル記載のNAD一覧を保持する静的なNAD検索。
type Directory struct {
	mu   sync.RWMutex
	byIP map[string]model.NetworkAccessDevice
}

// NewDirectory はNAD一覧からDirectoryを生成する。IPが重複する場合は後勝ち。
func NewDirectory(nads []model.NetworkAccessDevice) *Directory {
	d := &Directory{byIP: make(map[string]model.NetworkAccessDevice, len(nads))}
	for _, n := range nads {
		if n.HealthStatus == "" {
			n.HealthStatus = model.NADHealthUnknown
		}
		d.byIP[n.IP] = n
	}
	return d
}

// GetNAD は指定IPのNADを返す。未登録の場合はnilとnilを返す。
func (d *Directory) GetNAD(_ context.Context, ip string) (*model.NetworkAccessDevice, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.byIP[ip]
	if !ok {
		return nil, nil
	}
	return &n, nil
}
