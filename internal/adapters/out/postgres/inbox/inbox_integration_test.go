package inbox_test

import (
	"context"
	"testing"
	"time"

	"orders/internal/adapters/out/postgres/inbox"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type InboxIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	inbox     *inbox.PgxInbox
}

func (suite *InboxIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	pool, err := pgxpool.New(ctx, connStr)
	suite.Require().NoError(err)
	suite.pool = pool

	suite.inbox = inbox.NewPgxInbox(pool)
	suite.Require().NoError(suite.inbox.Migrate(ctx))
	suite.Require().NoError(suite.inbox.Migrate(ctx), "migration is repeatable")
}

func (suite *InboxIntegrationTestSuite) TearDownSuite() {
	if suite.pool != nil {
		suite.pool.Close()
	}
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *InboxIntegrationTestSuite) TestMarkProcessed() {
	ctx := context.Background()

	first, err := suite.inbox.MarkProcessed(ctx, "4b9f3c1e-0000-4000-8000-000000000001")
	suite.Require().NoError(err)
	suite.True(first)

	again, err := suite.inbox.MarkProcessed(ctx, "4b9f3c1e-0000-4000-8000-000000000001")
	suite.Require().NoError(err)
	suite.False(again)

	other, err := suite.inbox.MarkProcessed(ctx, "4b9f3c1e-0000-4000-8000-000000000002")
	suite.Require().NoError(err)
	suite.True(other)
}

func (suite *InboxIntegrationTestSuite) TestMarkProcessed_Blank() {
	_, err := suite.inbox.MarkProcessed(context.Background(), "")
	suite.Error(err)
}

func TestInboxIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(InboxIntegrationTestSuite))
}
