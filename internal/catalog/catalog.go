package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	xerrors "AgentCoin-Sim/internal/errors"
)

// AssetSpec 描述服务成功执行后产出的资产类型。
type AssetSpec struct {
	AssetID string `json:"asset_id" yaml:"asset_id"`
	Name    string `json:"name" yaml:"name"`
}

// Service 是目录中的一个条目。Cost 为正表示智能体付款，为负表示收款。
type Service struct {
	ID              string     `json:"id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Description     string     `json:"description" yaml:"description"`
	Cost            float64    `json:"cost" yaml:"cost"`
	ProducesAsset   *AssetSpec `json:"produces_asset,omitempty" yaml:"produces_asset,omitempty"`
	RequiresAssetID string     `json:"requires_asset_id,omitempty" yaml:"requires_asset_id,omitempty"`
}

// Catalog 是固定有序的服务注册表，初始化之后只读。
type Catalog struct {
	services       []Service
	index          map[string]int
	loanServiceID  string
	repayServiceID string
}

const (
	defaultLoanServiceID  = "6"
	defaultRepayServiceID = "7"
)

// ErrServiceNotFound 表示目录中不存在指定的服务。
var ErrServiceNotFound = xerrors.New(xerrors.CodeNotFound, "目录中不存在该服务")

// New 根据给定的服务列表构建目录。
func New(services []Service, loanID, repayID string) (*Catalog, error) {
	if len(services) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "服务列表不能为空")
	}
	if loanID == "" {
		loanID = defaultLoanServiceID
	}
	if repayID == "" {
		repayID = defaultRepayServiceID
	}

	index := make(map[string]int, len(services))
	for i, svc := range services {
		id := strings.TrimSpace(svc.ID)
		if id == "" {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("第 %d 个服务缺少 ID", i+1))
		}
		if _, dup := index[id]; dup {
			return nil, xerrors.New(xerrors.CodeConflict, fmt.Sprintf("服务 ID 重复: %s", id))
		}
		index[id] = i
	}

	cat := &Catalog{
		services:       append([]Service(nil), services...),
		index:          index,
		loanServiceID:  loanID,
		repayServiceID: repayID,
	}

	// 借款与还款服务必须能够在目录中找到。
	if _, ok := cat.Lookup(loanID); !ok {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("借款服务 %s 不在目录中", loanID))
	}
	if _, ok := cat.Lookup(repayID); !ok {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("还款服务 %s 不在目录中", repayID))
	}
	return cat, nil
}

// Default 返回内置的七项服务目录。
func Default() *Catalog {
	cat, err := New(defaultServices(), defaultLoanServiceID, defaultRepayServiceID)
	if err != nil {
		// 内置目录不可能非法。
		panic(err)
	}
	return cat
}

// defaultServices 是模拟经济体的初始服务集合。
func defaultServices() []Service {
	return []Service{
		{ID: "1", Name: "Basic Data API", Description: "Provides basic, free market data.", Cost: 0},
		{ID: "2", Name: "Premium Data Feed", Description: "Real-time, in-depth market analytics. Grants one \"Premium Data Packet\".", Cost: 75,
			ProducesAsset: &AssetSpec{AssetID: "pdp", Name: "Premium Data Packet"}},
		{ID: "3", Name: "Liquidity Pool Stake", Description: "Stake coins to earn a Staking Reward Voucher.", Cost: 50,
			ProducesAsset: &AssetSpec{AssetID: "srv", Name: "Staking Reward Voucher"}},
		{ID: "4", Name: "Price Oracle", Description: "Get a trusted price for an asset.", Cost: 5},
		{ID: "5", Name: "Sell Data Packet", Description: "Sell a \"Premium Data Packet\" on the open market.", Cost: -85, RequiresAssetID: "pdp"},
		{ID: "6", Name: "Take Loan (150)", Description: "Borrow 150 AGENT-COIN. Increases debt.", Cost: -150},
		{ID: "7", Name: "Repay Loan (175)", Description: "Repay the entire loan with interest. Requires 175 AGENT-COIN.", Cost: 175},
	}
}

// catalogFile 是 YAML 目录文件的根结构。
type catalogFile struct {
	LoanServiceID  string    `yaml:"loan_service_id"`
	RepayServiceID string    `yaml:"repay_service_id"`
	Services       []Service `yaml:"services"`
}

// LoadFile 从 YAML 文件加载服务目录。
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "目录文件路径不能为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取目录文件失败")
	}

	var file catalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "解析目录文件失败")
	}
	return New(file.Services, file.LoanServiceID, file.RepayServiceID)
}

// Lookup 按 ID 查找服务。未找到时第二个返回值为 false，不视为错误。
func (c *Catalog) Lookup(id string) (Service, bool) {
	i, ok := c.index[id]
	if !ok {
		return Service{}, false
	}
	return c.services[i], true
}

// Services 返回目录中的全部服务，保持初始化时的顺序。
func (c *Catalog) Services() []Service {
	return append([]Service(nil), c.services...)
}

// Len 返回目录长度。
func (c *Catalog) Len() int {
	return len(c.services)
}

// IsLoan 判断给定服务是否为指定的借款服务。
func (c *Catalog) IsLoan(id string) bool {
	return id == c.loanServiceID
}

// IsRepay 判断给定服务是否为指定的还款服务。
func (c *Catalog) IsRepay(id string) bool {
	return id == c.repayServiceID
}
