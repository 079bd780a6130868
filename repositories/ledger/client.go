package ledger

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/hash"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"github.com/upb/audit-trail/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
)

// Contract invokes chaincode functions by name with positional string arguments
type Contract interface {
	// Submit endorses, orders and commits a transaction, returning its
	// result and transaction ID
	Submit(ctx context.Context, name string, args ...string) ([]byte, string, error)

	// Evaluate runs a read-only query on a single peer
	Evaluate(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Client is a connection to a Fabric gateway peer bound to one chaincode.
// It is created by Connect and must be released with Close.
type Client struct {
	conn     *grpc.ClientConn
	gateway  *client.Gateway
	contract *client.Contract
	logger   *zap.Logger
}

// Connect dials the gateway peer using the configured client identity
func Connect(cfg config.LedgerConfig, logger *zap.Logger) (*Client, error) {
	conn, err := dial(cfg)
	if err != nil {
		return nil, err
	}

	id, err := loadIdentity(cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	sign, err := loadSign(cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithHash(hash.SHA256),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(cfg.EvaluateTimeout),
		client.WithEndorseTimeout(cfg.EndorseTimeout),
		client.WithSubmitTimeout(cfg.SubmitTimeout),
		client.WithCommitStatusTimeout(cfg.CommitStatusTimeout),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	logger.Info("ledger gateway connected",
		zap.String("peer", cfg.PeerEndpoint),
		zap.String("msp_id", cfg.MSPID),
		zap.String("channel", cfg.Channel),
		zap.String("chaincode", cfg.Chaincode),
	)

	return &Client{
		conn:     conn,
		gateway:  gw,
		contract: gw.GetNetwork(cfg.Channel).GetContract(cfg.Chaincode),
		logger:   logger,
	}, nil
}

func dial(cfg config.LedgerConfig) (*grpc.ClientConn, error) {
	pemBytes, err := os.ReadFile(cfg.TLSCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS certificate: %w", err)
	}
	cert, err := identity.CertificateFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TLS certificate: %w", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	creds := credentials.NewClientTLSFromCert(pool, cfg.GatewayPeer)

	conn, err := grpc.NewClient(cfg.PeerEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}
	return conn, nil
}

func loadIdentity(cfg config.LedgerConfig) (*identity.X509Identity, error) {
	pemBytes, err := os.ReadFile(cfg.CertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity certificate: %w", err)
	}
	cert, err := identity.CertificateFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity certificate: %w", err)
	}
	id, err := identity.NewX509Identity(cfg.MSPID, cert)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	return id, nil
}

func loadSign(cfg config.LedgerConfig) (identity.Sign, error) {
	pemBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	key, err := identity.PrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	return sign, nil
}

// Submit implements Contract
func (c *Client) Submit(ctx context.Context, name string, args ...string) ([]byte, string, error) {
	proposal, err := c.contract.NewProposal(name, client.WithArguments(args...))
	if err != nil {
		return nil, "", err
	}
	txID := proposal.TransactionID()

	transaction, err := proposal.EndorseWithContext(ctx)
	if err != nil {
		return nil, txID, err
	}
	commit, err := transaction.SubmitWithContext(ctx)
	if err != nil {
		return nil, txID, err
	}
	status, err := commit.StatusWithContext(ctx)
	if err != nil {
		return nil, txID, err
	}
	if !status.Successful {
		return nil, txID, fmt.Errorf("transaction %s failed to commit with status code %v", txID, status.Code)
	}

	c.logger.Debug("ledger transaction committed",
		zap.String("function", name),
		zap.String("tx_id", txID),
		zap.Uint64("block", status.BlockNumber),
	)
	return transaction.Result(), txID, nil
}

// Evaluate implements Contract
func (c *Client) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	proposal, err := c.contract.NewProposal(name, client.WithArguments(args...))
	if err != nil {
		return nil, err
	}
	return proposal.EvaluateWithContext(ctx)
}

// Ping reports whether the gRPC channel to the peer is usable
func (c *Client) Ping(ctx context.Context) error {
	state := c.conn.GetState()
	switch state {
	case connectivity.Ready:
		return nil
	case connectivity.Shutdown:
		return errors.New("ledger connection is closed")
	case connectivity.TransientFailure:
		return fmt.Errorf("ledger connection state %s", state)
	}

	// Idle or connecting: give the channel a chance to come up
	c.conn.Connect()
	if !c.conn.WaitForStateChange(ctx, state) {
		return fmt.Errorf("ledger connection state %s: %w", state, ctx.Err())
	}
	if next := c.conn.GetState(); next == connectivity.TransientFailure || next == connectivity.Shutdown {
		return fmt.Errorf("ledger connection state %s", next)
	}
	return nil
}

// Close releases the gateway and the underlying gRPC connection
func (c *Client) Close() error {
	c.gateway.Close()
	err := c.conn.Close()
	c.logger.Info("ledger gateway closed")
	return err
}
