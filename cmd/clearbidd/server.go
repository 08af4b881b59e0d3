package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/clearbid-io/clearbid/api"
	"github.com/clearbid-io/clearbid/core"
	"github.com/clearbid-io/clearbid/engine"
)

type server struct {
	engine     *engine.Engine
	logger     *zap.Logger
	port       int
	maxWorkers int
}

func (s *server) run() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			s.logger.Error("failed to close listener", zap.Error(err))
		}
	}()

	s.logger.Info("settlement daemon listening", zap.Int("port", s.port))

	semaphore := make(chan struct{}, s.maxWorkers)
	s.logger.Info("worker pool initialized", zap.Int("max_workers", s.maxWorkers))

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.logger.Error("failed to accept connection", zap.Error(err))
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(c)
			}(conn)
		default:
			s.logger.Warn("no workers available, rejecting connection")
			if err := conn.Close(); err != nil {
				s.logger.Error("failed to close rejected connection", zap.Error(err))
			}
		}
	}
}

func (s *server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in handleConnection", zap.Any("panic", r))
		}
		if err := conn.Close(); err != nil {
			s.logger.Error("failed to close connection", zap.Error(err))
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		s.logger.Error("failed to read request", zap.Error(err))
		return
	}

	var baseReq struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(buf.Bytes(), &baseReq); err != nil {
		s.logger.Error("failed to decode base request", zap.Error(err))
		return
	}

	s.logger.Info("received request", zap.String("type", baseReq.Type))

	response := s.dispatch(baseReq.Type, buf.Bytes())

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *server) dispatch(reqType string, raw []byte) api.Response {
	switch reqType {
	case "ping":
		return api.Response{Type: "pong", Success: true, Message: "settlement daemon is healthy"}

	case "create_auction":
		var req api.CreateAuctionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse("create_auction_response", err)
		}
		return s.handleCreateAuction(req)

	case "place_bid":
		var req api.PlaceBidRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse("place_bid_response", err)
		}
		return s.handlePlaceBid(req)

	case "finalize":
		var req api.FinalizeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse("finalize_response", err)
		}
		return s.handleFinalize(req)

	case "withdraw":
		var req api.WithdrawRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse("withdraw_response", err)
		}
		return s.handleWithdraw(req)

	case "records":
		return api.Response{Type: "records_response", Success: true, Records: s.engine.Records()}

	case "receipt_key":
		pem, err := s.engine.ReceiptPublicKeyPEM()
		if err != nil {
			return errorResponse("receipt_key_response", err)
		}
		return api.Response{Type: "receipt_key_response", Success: true, PublicKeyPEM: pem}

	default:
		return api.Response{
			Type:    "error",
			Message: fmt.Sprintf("Unknown request type: %s", reqType),
		}
	}
}

func (s *server) handleCreateAuction(req api.CreateAuctionRequest) api.Response {
	reserveAmount, ok := parseAmount(req.ReserveAmount)
	if !ok {
		return errorResponse("create_auction_response",
			fmt.Errorf("%w: reserve amount %q is not a decimal integer", engine.ErrInvalidArgument, req.ReserveAmount))
	}

	id, err := s.engine.CreateAuction(
		core.Address(req.Seller),
		req.Asset,
		core.Unit(req.ReserveUnit),
		reserveAmount,
		time.Duration(req.DurationSeconds)*time.Second,
	)
	if err != nil {
		return errorResponse("create_auction_response", err)
	}
	return api.Response{Type: "create_auction_response", Success: true, AuctionID: id}
}

func (s *server) handlePlaceBid(req api.PlaceBidRequest) api.Response {
	amount, ok := parseAmount(req.Amount)
	if !ok {
		return errorResponse("place_bid_response",
			fmt.Errorf("%w: amount %q is not a decimal integer", engine.ErrInvalidArgument, req.Amount))
	}
	attached := new(big.Int)
	if req.AttachedValue != "" {
		attached, ok = parseAmount(req.AttachedValue)
		if !ok {
			return errorResponse("place_bid_response",
				fmt.Errorf("%w: attached value %q is not a decimal integer", engine.ErrInvalidArgument, req.AttachedValue))
		}
	}

	err := s.engine.PlaceBid(req.AuctionID, core.Address(req.Bidder), core.Unit(req.Unit), amount, attached)
	if err != nil {
		return errorResponse("place_bid_response", err)
	}
	return api.Response{Type: "place_bid_response", Success: true, AuctionID: req.AuctionID}
}

func (s *server) handleFinalize(req api.FinalizeRequest) api.Response {
	receipt, err := s.engine.Finalize(req.AuctionID)
	if err != nil {
		return errorResponse("finalize_response", err)
	}
	return api.Response{
		Type:              "finalize_response",
		Success:           true,
		AuctionID:         req.AuctionID,
		ReceiptCOSEBase64: receipt.EncodeBase64(),
	}
}

func (s *server) handleWithdraw(req api.WithdrawRequest) api.Response {
	amount, err := s.engine.Withdraw(core.Address(req.Beneficiary), core.Unit(req.Unit))
	if err != nil {
		return errorResponse("withdraw_response", err)
	}
	return api.Response{Type: "withdraw_response", Success: true, Amount: amount.String()}
}

func errorResponse(respType string, err error) api.Response {
	return api.Response{
		Type:    respType,
		Success: false,
		Message: err.Error(),
		Reason:  engine.Reason(err),
	}
}

func parseAmount(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}
