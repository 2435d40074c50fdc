package testutil

import (
	"fmt"
	"net"
	"testing"
	"time"
)

const pollInterval = 10 * time.Millisecond

// poll вызывает cond каждые pollInterval, пока он не вернёт true или не
// истечёт timeout.
func poll(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

// WaitForTCPReady ждёт, пока addr начнёт принимать TCP соединения.
//
//	go srv.Serve(ctx, ln)
//	if err := testutil.WaitForTCPReady(addr, 5*time.Second); err != nil {
//	    t.Fatal(err)
//	}
func WaitForTCPReady(addr string, timeout time.Duration) error {
	ok := poll(timeout, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	})
	if !ok {
		return fmt.Errorf("auth server at %s not ready after %v", addr, timeout)
	}
	return nil
}

// WaitUntil фейлит тест, если cond не стал true за timeout. Нужен для
// состояния, которое сервер меняет асинхронно: закрытие сессий, окончание
// передачи патча.
func WaitUntil(t testing.TB, cond func() bool, timeout time.Duration) {
	t.Helper()
	if !poll(timeout, cond) {
		t.Fatalf("condition not met within %v", timeout)
	}
}
