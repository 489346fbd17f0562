package utils

import "sync"

// ParallelMap 使用固定数量的 worker 并发执行 fn，结果与输入一一对应、保持顺序。
// workers <= 1 或输入只有一个元素时直接串行执行。
func ParallelMap[T any, R any](input []T, workers int, fn func(T) R) []R {
	result := make([]R, len(input))
	if len(input) == 0 {
		return result
	}
	if workers <= 1 || len(input) == 1 {
		for i, v := range input {
			result[i] = fn(v)
		}
		return result
	}
	if workers > len(input) {
		workers = len(input)
	}

	indexes := make(chan int, len(input))
	for i := range input {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				// 每个 worker 只写自己领取的下标，无需加锁
				result[i] = fn(input[i])
			}
		}()
	}
	wg.Wait()
	return result
}
