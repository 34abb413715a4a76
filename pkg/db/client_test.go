package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
)

type ledgerRow struct {
	ID     int
	PixID  string `gorm:"uniqueIndex"`
	Status string
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver:       DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, client.DB().AutoMigrate(&ledgerRow{}))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func countRows(t *testing.T, client *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestNewRejectsMissingDSNAndUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), config.DBConfig{Driver: "mysql", DSN: "x"}, nil)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{PixID: "PIX-1", Status: "pending"}).Error
	}))
	assert.Equal(t, int64(1), countRows(t, client))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&ledgerRow{PixID: "PIX-2", Status: "pending"}).Error; err != nil {
			return err
		}
		return errors.New("provider refused charge")
	})
	require.Error(t, err)
	assert.Equal(t, int64(1), countRows(t, client))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client := newTestClient(t)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&ledgerRow{PixID: "PIX-3", Status: "paid"})
			panic("boom")
		})
	})
	assert.Equal(t, int64(0), countRows(t, client))
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	client := newTestClient(t)
	conn := client.DB()

	require.NoError(t, conn.Create(&ledgerRow{PixID: "PIX-9"}).Error)
	err := conn.Create(&ledgerRow{PixID: "PIX-9"}).Error

	assert.True(t, IsUniqueViolation(err, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestIsNotFound(t *testing.T) {
	client := newTestClient(t)
	var row ledgerRow
	err := client.DB().Where("pix_id = ?", "missing").First(&row).Error
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("boom")))
}
