package chain

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ContractDescriptor binds a gateway to one version of the voting contract.
// It is injected at construction instead of living in a process-wide
// constant, so multiple contract versions can coexist (tests build their
// own descriptors).
type ContractDescriptor struct {
	ABI      abi.ABI
	Bytecode []byte
}

// votingSystemABI is the fixed interface of VotingSystem.sol, versioned by
// the on-chain bytecode.
const votingSystemABI = `[
  {"type":"constructor","inputs":[{"name":"title","type":"string"},{"name":"description","type":"string"}]},
  {"type":"function","name":"registerVoter","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"age","type":"uint8"},{"name":"gender","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"registerCandidate","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"age","type":"uint8"},{"name":"gender","type":"uint8"},{"name":"party","type":"string"},{"name":"manifesto","type":"string"}],"outputs":[]},
  {"type":"function","name":"castVote","stateMutability":"nonpayable","inputs":[{"name":"candidateId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setElectionDetails","stateMutability":"nonpayable","inputs":[{"name":"title","type":"string"},{"name":"description","type":"string"}],"outputs":[]},
  {"type":"function","name":"emergencyStopVoting","stateMutability":"nonpayable","inputs":[{"name":"reason","type":"string"}],"outputs":[]},
  {"type":"function","name":"announceResults","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"electionDetails","stateMutability":"view","inputs":[],"outputs":[{"name":"title","type":"string"},{"name":"description","type":"string"},{"name":"votingActive","type":"bool"},{"name":"resultsAnnounced","type":"bool"},{"name":"totalVotes","type":"uint256"}]},
  {"type":"function","name":"getCandidateList","stateMutability":"view","inputs":[],"outputs":[{"name":"ids","type":"uint256[]"},{"name":"names","type":"string[]"},{"name":"parties","type":"string[]"},{"name":"voteCounts","type":"uint256[]"}]},
  {"type":"function","name":"getResults","stateMutability":"view","inputs":[],"outputs":[{"name":"ids","type":"uint256[]"},{"name":"voteCounts","type":"uint256[]"}]},
  {"type":"function","name":"getVotingStatus","stateMutability":"view","inputs":[],"outputs":[{"name":"active","type":"bool"},{"name":"stopped","type":"bool"}]},
  {"type":"event","name":"VoterRegistered","inputs":[{"name":"voterId","type":"uint256","indexed":false},{"name":"account","type":"address","indexed":false},{"name":"name","type":"string","indexed":false}],"anonymous":false},
  {"type":"event","name":"CandidateRegistered","inputs":[{"name":"candidateId","type":"uint256","indexed":false},{"name":"account","type":"address","indexed":false},{"name":"name","type":"string","indexed":false}],"anonymous":false},
  {"type":"event","name":"VoteCast","inputs":[{"name":"voter","type":"address","indexed":false},{"name":"candidateId","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"VotingResultAnnounced","inputs":[{"name":"winnerId","type":"uint256","indexed":false},{"name":"voteCount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"EmergencyStop","inputs":[{"name":"reason","type":"string","indexed":false}],"anonymous":false},
  {"type":"event","name":"ElectionCreated","inputs":[{"name":"title","type":"string","indexed":false}],"anonymous":false}
]`

// DefaultDescriptor parses the shipped VotingSystem ABI. Bytecode is hex
// encoded, usually supplied via config; an empty string leaves deployment
// unavailable.
func DefaultDescriptor(bytecodeHex string) (ContractDescriptor, error) {
	parsed, err := abi.JSON(strings.NewReader(votingSystemABI))
	if err != nil {
		return ContractDescriptor{}, err
	}

	var bytecode []byte
	if bytecodeHex != "" {
		bytecode, err = hex.DecodeString(strings.TrimPrefix(bytecodeHex, "0x"))
		if err != nil {
			return ContractDescriptor{}, err
		}
	}

	return ContractDescriptor{
		ABI:      parsed,
		Bytecode: bytecode,
	}, nil
}
