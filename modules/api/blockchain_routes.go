package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

func (api *Api) registerBlockchainRoutes(r fiber.Router) {
	g := r.Group("/blockchain")
	g.Get("/status", api.handleChainStatus)
	g.Get("/balance/:address", api.handleBalance)
	g.Get("/tx/:hash", api.handleTransaction)
	g.Get("/elections/:address", api.handleOnChainElection)
}

func (api *Api) handleChainStatus(c *fiber.Ctx) error {
	block, err := api.gateway.GetCurrentBlockNumber(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"blockNumber": block})
}

func (api *Api) handleBalance(c *fiber.Ctx) error {
	address := c.Params("address")
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return fail(c, fiber.StatusBadRequest, "malformed address")
	}
	balance, err := api.gateway.GetBalance(c.Context(), address)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"address": address, "balanceWei": balance.String()})
}

func (api *Api) handleTransaction(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if len(hash) != 66 || !strings.HasPrefix(hash, "0x") {
		return fail(c, fiber.StatusBadRequest, "malformed transaction hash")
	}
	receipt, err := api.gateway.GetTransactionReceipt(c.Context(), hash)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "transaction not found")
	}
	return ok(c, fiber.Map{
		"txHash":      hash,
		"status":      receipt.Status,
		"blockNumber": receipt.BlockNumber.Uint64(),
		"gasUsed":     receipt.GasUsed,
	})
}

// handleOnChainElection reads the live contract state, bypassing the
// off-chain records entirely. Useful for spotting drift by hand.
func (api *Api) handleOnChainElection(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	info, err := api.gateway.GetElectionInfo(c.Context(), address)
	if err != nil {
		return mapError(c, err)
	}
	status, err := api.gateway.GetVotingStatus(c.Context(), address)
	if err != nil {
		return mapError(c, err)
	}
	roster, err := api.gateway.GetCandidateList(c.Context(), address)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{
		"election":   info,
		"voting":     status,
		"candidates": roster,
	})
}
