package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"ballot-node/lib/logger"
	a "ballot-node/modules/aggregate"
	"ballot-node/modules/config"

	"github.com/chebyrash/promise"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

type gateway struct {
	conf       *config.Config[ChainConfig]
	descriptor ContractDescriptor
	log        logger.Logger

	client  *ethclient.Client
	chainID *big.Int
}

var _ Gateway = &gateway{}
var _ a.Plugin = &gateway{}

func New(conf *config.Config[ChainConfig], descriptor ContractDescriptor, log logger.Logger) *gateway {
	return &gateway{
		conf:       conf,
		descriptor: descriptor,
		log:        log,
	}
}

func (g *gateway) Init() error {
	client, err := ethclient.Dial(g.conf.Get().RpcURL)
	if err != nil {
		return err
	}
	g.client = client
	return nil
}

func (g *gateway) Start() *promise.Promise[any] {
	return promise.New(func(resolve func(any), reject func(error)) {
		chainID, err := g.client.ChainID(context.Background())
		if err != nil {
			reject(err)
			return
		}
		g.chainID = chainID
		g.log.Debug("connected to chain", chainID)
		resolve(nil)
	})
}

func (g *gateway) Stop() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}

// ===== signing & submission =====

func (g *gateway) signerFromKey(signerKey string) (*ecdsa.PrivateKey, ethCommon.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(signerKey, "0x"))
	if err != nil {
		return nil, ethCommon.Address{}, fmt.Errorf("invalid signer key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

// submit sends a transaction and blocks until it is mined. The wait is
// bounded by MineTimeoutSeconds; the submission itself is not retried.
func (g *gateway) submit(ctx context.Context, to *ethCommon.Address, data []byte, signerKey string) (*types.Receipt, error) {
	key, from, err := g.signerFromKey(signerKey)
	if err != nil {
		return nil, err
	}

	nonce, err := g.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   to,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    big.NewInt(0),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(g.conf.Get().MineTimeoutSeconds)*time.Second)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, g.client, signed)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, signed.Hash().Hex())
	}
	return receipt, nil
}

func (g *gateway) pack(method string, args ...interface{}) ([]byte, error) {
	data, err := g.descriptor.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

func (g *gateway) view(ctx context.Context, contractAddress, method string, args ...interface{}) ([]interface{}, error) {
	data, err := g.pack(method, args...)
	if err != nil {
		return nil, err
	}
	addr := ethCommon.HexToAddress(contractAddress)
	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	vals, err := g.descriptor.ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals, nil
}

// ===== write operations =====

func (g *gateway) Deploy(ctx context.Context, title, description, signerKey string) (*DeployResult, error) {
	if len(g.descriptor.Bytecode) == 0 {
		return nil, ErrNoBytecode
	}

	ctorArgs, err := g.pack("", title, description)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(g.descriptor.Bytecode)+len(ctorArgs))
	data = append(data, g.descriptor.Bytecode...)
	data = append(data, ctorArgs...)

	receipt, err := g.submit(ctx, nil, data, signerKey)
	if err != nil {
		return nil, err
	}

	return &DeployResult{
		ContractAddress: receipt.ContractAddress.Hex(),
		TxHash:          receipt.TxHash.Hex(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
	}, nil
}

func (g *gateway) RegisterVoter(ctx context.Context, contractAddress, name string, age uint8, genderIndex uint8, signerKey string) (*RegistrationResult, error) {
	return g.register(ctx, contractAddress, signerKey, "VoterRegistered", "registerVoter", name, age, genderIndex)
}

func (g *gateway) RegisterCandidate(ctx context.Context, contractAddress, name string, age uint8, genderIndex uint8, party, manifesto, signerKey string) (*RegistrationResult, error) {
	return g.register(ctx, contractAddress, signerKey, "CandidateRegistered", "registerCandidate", name, age, genderIndex, party, manifesto)
}

func (g *gateway) register(ctx context.Context, contractAddress, signerKey, eventName, method string, args ...interface{}) (*RegistrationResult, error) {
	data, err := g.pack(method, args...)
	if err != nil {
		return nil, err
	}
	addr := ethCommon.HexToAddress(contractAddress)
	receipt, err := g.submit(ctx, &addr, data, signerKey)
	if err != nil {
		return nil, err
	}

	result := RegistrationResult{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}
	onChainID, err := ParseRegistrationEvent(g.descriptor, receipt, eventName)
	if err != nil {
		// The transaction mined; surface the result alongside the error so
		// the caller can record the drift instead of double submitting.
		return &result, err
	}
	result.OnChainID = onChainID
	return &result, nil
}

func (g *gateway) CastVote(ctx context.Context, contractAddress string, candidateOnChainID uint64, signerKey string) (*VoteResult, error) {
	data, err := g.pack("castVote", new(big.Int).SetUint64(candidateOnChainID))
	if err != nil {
		return nil, err
	}
	addr := ethCommon.HexToAddress(contractAddress)
	receipt, err := g.submit(ctx, &addr, data, signerKey)
	if err != nil {
		return nil, err
	}
	return &VoteResult{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

func (g *gateway) SetElectionDetails(ctx context.Context, contractAddress, title, description, signerKey string) (*TxOutcome, error) {
	return g.adminCall(ctx, contractAddress, signerKey, "setElectionDetails", title, description)
}

func (g *gateway) EmergencyStopVoting(ctx context.Context, contractAddress, reason, signerKey string) (*TxOutcome, error) {
	return g.adminCall(ctx, contractAddress, signerKey, "emergencyStopVoting", reason)
}

func (g *gateway) AnnounceResults(ctx context.Context, contractAddress, signerKey string) (*TxOutcome, error) {
	return g.adminCall(ctx, contractAddress, signerKey, "announceResults")
}

// adminCall submits a commissioner-only state transition. Authorization is
// enforced by the contract; a wrong signer surfaces as a generic revert.
func (g *gateway) adminCall(ctx context.Context, contractAddress, signerKey, method string, args ...interface{}) (*TxOutcome, error) {
	data, err := g.pack(method, args...)
	if err != nil {
		return nil, err
	}
	addr := ethCommon.HexToAddress(contractAddress)
	receipt, err := g.submit(ctx, &addr, data, signerKey)
	if err != nil {
		return nil, err
	}
	return &TxOutcome{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// ===== read operations =====

func (g *gateway) GetElectionInfo(ctx context.Context, contractAddress string) (*ElectionInfo, error) {
	vals, err := g.view(ctx, contractAddress, "electionDetails")
	if err != nil {
		return nil, err
	}
	if len(vals) != 5 {
		return nil, fmt.Errorf("electionDetails: unexpected output arity %d", len(vals))
	}
	return &ElectionInfo{
		Title:            vals[0].(string),
		Description:      vals[1].(string),
		VotingActive:     vals[2].(bool),
		ResultsAnnounced: vals[3].(bool),
		TotalVotes:       vals[4].(*big.Int).Uint64(),
	}, nil
}

func (g *gateway) GetVotingStatus(ctx context.Context, contractAddress string) (*VotingStatus, error) {
	vals, err := g.view(ctx, contractAddress, "getVotingStatus")
	if err != nil {
		return nil, err
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("getVotingStatus: unexpected output arity %d", len(vals))
	}
	return &VotingStatus{
		Active:  vals[0].(bool),
		Stopped: vals[1].(bool),
	}, nil
}

func (g *gateway) GetCandidateList(ctx context.Context, contractAddress string) ([]CandidateInfo, error) {
	vals, err := g.view(ctx, contractAddress, "getCandidateList")
	if err != nil {
		return nil, err
	}
	if len(vals) != 4 {
		return nil, fmt.Errorf("getCandidateList: unexpected output arity %d", len(vals))
	}
	ids := vals[0].([]*big.Int)
	names := vals[1].([]string)
	parties := vals[2].([]string)
	counts := vals[3].([]*big.Int)
	if len(names) != len(ids) || len(parties) != len(ids) || len(counts) != len(ids) {
		return nil, fmt.Errorf("getCandidateList: mismatched column lengths")
	}

	list := make([]CandidateInfo, len(ids))
	for i := range ids {
		list[i] = CandidateInfo{
			OnChainID: ids[i].Uint64(),
			Name:      names[i],
			Party:     parties[i],
			Votes:     counts[i].Uint64(),
		}
	}
	return list, nil
}

func (g *gateway) GetResults(ctx context.Context, contractAddress string) ([]ResultRow, error) {
	vals, err := g.view(ctx, contractAddress, "getResults")
	if err != nil {
		return nil, err
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("getResults: unexpected output arity %d", len(vals))
	}
	ids := vals[0].([]*big.Int)
	counts := vals[1].([]*big.Int)
	if len(counts) != len(ids) {
		return nil, fmt.Errorf("getResults: mismatched column lengths")
	}

	rows := make([]ResultRow, len(ids))
	for i := range ids {
		rows[i] = ResultRow{
			OnChainID: ids[i].Uint64(),
			Votes:     counts[i].Uint64(),
		}
	}
	return rows, nil
}

func (g *gateway) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	return g.client.BalanceAt(ctx, ethCommon.HexToAddress(address), nil)
}

func (g *gateway) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	return g.client.TransactionReceipt(ctx, ethCommon.HexToHash(txHash))
}

func (g *gateway) GetCurrentBlockNumber(ctx context.Context) (uint64, error) {
	return g.client.BlockNumber(ctx)
}

// ===== event parsing =====

// ParseRegistrationEvent pulls the on-chain id out of the registration event
// in a receipt. Returns ErrEventMissing when the receipt carries no matching
// log, which callers must treat as "mined but id unknown".
func ParseRegistrationEvent(descriptor ContractDescriptor, receipt *types.Receipt, eventName string) (*uint64, error) {
	event, ok := descriptor.ABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("event %s not in descriptor", eventName)
	}

	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		vals, err := descriptor.ABI.Unpack(eventName, lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", eventName, err)
		}
		if len(vals) == 0 {
			return nil, fmt.Errorf("unpack %s: empty event", eventName)
		}
		id, ok := vals[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unpack %s: first field is not uint256", eventName)
		}
		value := id.Uint64()
		return &value, nil
	}
	return nil, ErrEventMissing
}

// SignerAddress derives the 0x address controlled by a hex private key.
func SignerAddress(signerKey string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(signerKey, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid signer key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}
