package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"max.com/optpricing/pkg/nats"
)

const (
	testDSN     = "root:123456@tcp(127.0.0.1:3306)/optpricing_test?charset=utf8mb4&parseTime=True&loc=Local"
	testNatsURL = "nats://127.0.0.1:4222"
)

func setupTestRepo(t *testing.T) *MySQLRepository {
	db, err := gorm.Open(mysql.Open(testDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("skipping test; mysql not available: %v", err)
	}
	repo := NewMySQLRepository(db)
	require.NoError(t, repo.AutoMigrate())
	db.Exec("DELETE FROM option_valuations WHERE symbol LIKE 'TEST%'")
	t.Cleanup(func() {
		db.Exec("DELETE FROM option_valuations WHERE symbol LIKE 'TEST%'")
	})
	return repo
}

func TestMySQLRepository(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newTestService(t, nil, repo, nil)
	ctx := context.Background()

	req := referenceRequest("CALL")
	req.Symbol = "TESTREF"
	v, err := svc.Value(ctx, req)
	require.NoError(t, err)

	got, err := repo.GetByValuationID(ctx, v.ValuationID)
	require.NoError(t, err)
	assert.Equal(t, "TESTREF", got.Symbol)
	// decimal(32,18) 保留 18 位小数
	assert.InDelta(t, v.Price.InexactFloat64(), got.Price.InexactFloat64(), 1e-15)
	assert.InDelta(t, v.Theta.InexactFloat64(), got.Theta.InexactFloat64(), 1e-15)

	list, err := repo.ListBySymbol(ctx, "TESTREF", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.GetByValuationID(ctx, -1)
	assert.ErrorIs(t, err, ErrValuationNotFound)
}

func TestNatsResponder_RequestReply(t *testing.T) {
	client, err := nats.NewPublisher(testNatsURL, "pricer-test-client")
	if err != nil {
		t.Skipf("skipping test; nats not available: %v", err)
	}
	t.Cleanup(client.Close)

	responder, err := NewNatsResponder(newTestService(t, nil, nil, nil), testNatsURL, time.Second)
	require.NoError(t, err)
	require.NoError(t, responder.Start())
	t.Cleanup(func() { responder.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var reply Reply
	require.NoError(t, client.Request(ctx, SubjectPricingRequest, referenceRequest("PUT"), &reply))
	require.Empty(t, reply.Error)
	require.NotNil(t, reply.Valuation)
	assert.InDelta(t, 0.8085993729000958, reply.Valuation.Price.InexactFloat64(), 1e-12)

	bad := referenceRequest("PUT")
	bad.Style = "AMERICAN"
	reply = Reply{}
	require.NoError(t, client.Request(ctx, SubjectPricingRequest, bad, &reply))
	assert.Contains(t, reply.Error, "american")
}
