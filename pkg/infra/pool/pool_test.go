package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool("test", DefaultPoolConfig())
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if p.Name() != "test" {
		t.Errorf("池名称不匹配: 期望 test, 实际 %s", p.Name())
	}

	if p.Cap() != 8 {
		t.Errorf("池容量不匹配: 期望 8, 实际 %d", p.Cap())
	}
}

func TestNewPoolInvalidConfig(t *testing.T) {
	_, err := NewPool("test", &Config{Capacity: 0})
	if !errors.Is(err, ErrInvalidPoolConfig) {
		t.Errorf("期望 ErrInvalidPoolConfig, 实际: %v", err)
	}
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", &Config{
		Capacity:       10,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		})
		if err != nil {
			t.Errorf("提交任务失败: %v", err)
			wg.Done()
		}
	}

	wg.Wait()

	if counter.Load() != 100 {
		t.Errorf("任务执行数不匹配: 期望 100, 实际 %d", counter.Load())
	}
}

func TestPoolSubmitWithContext(t *testing.T) {
	p, err := NewPool("test", &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	done := make(chan struct{})
	err = p.SubmitWithContext(context.Background(), func() {
		close(done)
	})
	if err != nil {
		t.Errorf("提交任务失败: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("任务未执行")
	}

	// 测试已取消的上下文
	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.SubmitWithContext(canceledCtx, func() {
		t.Error("已取消的上下文不应执行任务")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled 错误, 实际: %v", err)
	}
}

func TestPoolForEachPreservesOrder(t *testing.T) {
	p, err := NewPool("test", &Config{
		Capacity:       3,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	const n = 50
	results := make([]int, n)
	err = p.ForEach(context.Background(), n, func(i int) {
		// 让后提交的任务更早完成
		time.Sleep(time.Duration(n-i) * 100 * time.Microsecond)
		results[i] = i * i
	})
	if err != nil {
		t.Fatalf("ForEach 失败: %v", err)
	}

	for i, v := range results {
		if v != i*i {
			t.Fatalf("结果顺序错误: results[%d] = %d", i, v)
		}
	}
}

func TestPoolForEachAfterRelease(t *testing.T) {
	p, err := NewPool("test", &Config{
		Capacity:       2,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	p.Release()

	var counter atomic.Int32
	err = p.ForEach(context.Background(), 5, func(int) {
		counter.Add(1)
	})
	if err != nil {
		t.Fatalf("ForEach 失败: %v", err)
	}
	if counter.Load() != 5 {
		t.Errorf("池关闭后应降级为同步执行: 期望 5, 实际 %d", counter.Load())
	}
}

func TestPoolForEachCanceled(t *testing.T) {
	p, err := NewPool("test", DefaultPoolConfig())
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.ForEach(ctx, 10, func(int) {
		t.Error("已取消的上下文不应执行任务")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled 错误, 实际: %v", err)
	}
}

func TestPoolPanicRecovery(t *testing.T) {
	caught := make(chan struct{}, 1)

	p, err := NewPool("test", &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
		PanicHandler: func(r interface{}) {
			caught <- struct{}{}
		},
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	err = p.Submit(func() {
		panic("测试 panic")
	})
	if err != nil {
		t.Errorf("提交任务失败: %v", err)
	}

	select {
	case <-caught:
	case <-time.After(time.Second):
		t.Error("panic 未被捕获")
	}

	if got := p.Stats().PanicRecovered; got != 1 {
		t.Errorf("PanicRecovered 期望 1, 实际 %d", got)
	}
}

func TestPoolClosed(t *testing.T) {
	p, err := NewPool("test", &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}

	p.Release()

	err = p.Submit(func() {
		t.Error("已关闭的池不应执行任务")
	})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("期望 ErrPoolClosed, 实际: %v", err)
	}
}
