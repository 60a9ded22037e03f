// Package ethereum implements the chain.Observer interface for EVM
// compatible networks via the standard go-ethereum RPC client.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"AgentCoin-Sim/internal/chain"
)

// Observer 通过以太坊 RPC 节点提供只读的链上观察能力。
type Observer struct {
	rpcClient *gethrpc.Client
	eth       *ethclient.Client

	mu      sync.Mutex
	chainID *big.Int
}

// NewObserver 连接配置的 RPC 节点并返回可用的观察器。
func NewObserver(ctx context.Context, cfg chain.Config) (*Observer, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置以太坊 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}

	return &Observer{
		rpcClient: rpcClient,
		eth:       ethclient.NewClient(rpcClient),
	}, nil
}

// Observe 获取链 ID 与最新区块高度。链 ID 在首次获取后缓存。
func (o *Observer) Observe(ctx context.Context) (chain.Snapshot, error) {
	chainID, err := o.getChainID(ctx)
	if err != nil {
		return chain.Snapshot{}, fmt.Errorf("获取链 ID 失败: %w", err)
	}

	blockNumber, err := o.eth.BlockNumber(ctx)
	if err != nil {
		return chain.Snapshot{}, fmt.Errorf("获取最新区块失败: %w", err)
	}

	return chain.Snapshot{
		ChainID:     chainID.String(),
		BlockNumber: fmt.Sprintf("%d", blockNumber),
	}, nil
}

func (o *Observer) getChainID(ctx context.Context) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.chainID != nil {
		return o.chainID, nil
	}
	chainID, err := o.eth.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	o.chainID = chainID
	return chainID, nil
}

// Close 关闭底层 RPC 连接。
func (o *Observer) Close() {
	if o == nil || o.rpcClient == nil {
		return
	}
	o.rpcClient.Close()
}
