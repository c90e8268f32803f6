package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"escrow-sol/internal/cache"
	"escrow-sol/internal/logic/state"
	"escrow-sol/internal/types"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testProgramID = types.Pubkey{0xE5, 0xC0}
	testEscrowA   = types.Pubkey{0xA4}
	testEscrowB   = types.Pubkey{0xA5}
)

type fakeFetcher struct {
	infos map[string]client.AccountInfo
	err   error
	calls atomic.Int32
}

func (f *fakeFetcher) callCount() int32 {
	return f.calls.Load()
}

func (f *fakeFetcher) GetMultipleAccounts(_ context.Context, bases []string) ([]client.AccountInfo, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]client.AccountInfo, len(bases))
	for i, b := range bases {
		out[i] = f.infos[b]
	}
	return out, nil
}

func escrowData(t *testing.T, initialized bool, amount uint64) []byte {
	data := make([]byte, state.EscrowLen)
	e := state.Escrow{
		Initialized:      initialized,
		Initializer:      types.Pubkey{1},
		TempTokenAccount: types.Pubkey{2},
		ReceivingAccount: types.Pubkey{3},
		ExpectedAmount:   amount,
	}
	require.NoError(t, e.Pack(data))
	return data
}

func newTestService(t *testing.T, fetcher AccountFetcher) (*EscrowWatchService, *cache.EscrowCache) {
	c := cache.NewEscrowCache()
	s, err := NewEscrowWatchService(fetcher, testProgramID, []types.Pubkey{testEscrowA, testEscrowB}, time.Hour, time.Second, c)
	require.NoError(t, err)
	return s, c
}

func TestEscrowWatchService_Update(t *testing.T) {
	fetcher := &fakeFetcher{infos: map[string]client.AccountInfo{
		testEscrowA.String(): {Lamports: 1_621_680, Owner: testProgramID.ToCommon(), Data: escrowData(t, true, 500)},
		testEscrowB.String(): {Lamports: 1_621_680, Owner: testProgramID.ToCommon(), Data: escrowData(t, false, 0)},
	}}
	s, c := newTestService(t, fetcher)

	require.NoError(t, s.update())
	obs, ok := c.Get(testEscrowA)
	require.True(t, ok)
	assert.Equal(t, uint64(500), obs.Record.ExpectedAmount)
	assert.Equal(t, uint64(1_621_680), obs.Lamports)

	_, ok = c.Get(testEscrowB)
	assert.False(t, ok, "未初始化的账户不入缓存")

	// 账户被其他程序接管后移除
	fetcher.infos[testEscrowA.String()] = client.AccountInfo{Owner: types.Pubkey{0x01}.ToCommon(), Data: escrowData(t, true, 500)}
	require.NoError(t, s.update())
	_, ok = c.Get(testEscrowA)
	assert.False(t, ok)

	// 账户关闭
	fetcher.infos[testEscrowA.String()] = client.AccountInfo{Owner: testProgramID.ToCommon(), Data: escrowData(t, true, 700)}
	require.NoError(t, s.update())
	delete(fetcher.infos, testEscrowA.String())
	require.NoError(t, s.update())
	assert.Equal(t, 0, c.Len())
}

func TestEscrowWatchService_BadData(t *testing.T) {
	fetcher := &fakeFetcher{infos: map[string]client.AccountInfo{
		testEscrowA.String(): {Owner: testProgramID.ToCommon(), Data: []byte{1, 2, 3}},
	}}
	s, c := newTestService(t, fetcher)

	require.NoError(t, s.update())
	assert.Equal(t, 0, c.Len())
}

func TestEscrowWatchService_FetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	s, _ := newTestService(t, fetcher)

	err := s.update()
	assert.ErrorContains(t, err, "connection refused")
}

func TestEscrowWatchService_StartStop(t *testing.T) {
	fetcher := &fakeFetcher{infos: map[string]client.AccountInfo{}}
	s, _ := newTestService(t, fetcher)

	done := make(chan struct{})
	go func() {
		s.Start()
		close(done)
	}()

	require.Eventually(t, func() bool { return fetcher.callCount() > 0 }, time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start 未在 Stop 后返回")
	}
}

func TestNewEscrowWatchService_Validation(t *testing.T) {
	_, err := NewEscrowWatchService(nil, testProgramID, []types.Pubkey{testEscrowA}, time.Second, time.Second, cache.NewEscrowCache())
	assert.Error(t, err)

	_, err = NewEscrowWatchService(&fakeFetcher{}, testProgramID, nil, time.Second, time.Second, cache.NewEscrowCache())
	assert.Error(t, err)
}
