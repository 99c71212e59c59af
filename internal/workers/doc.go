/*
Package workers sizes and runs the worker pools used for batch decodes.

# Sizing

Go sets GOMAXPROCS from the container CPU limit, while runtime.NumCPU still
reports the host. Count and its helpers derive pool sizes from GOMAXPROCS:

	numWorkers := workers.ForCPU(8)   // 1 per CPU, at most 8
	numWorkers := workers.ForIO(16)   // 2 per CPU, at most 16
	numWorkers := workers.ForMixed(12) // 1.5 per CPU, at most 12

Operators can pin the size with DECODE_WORKERS:

	env:
	- name: DECODE_WORKERS
	  value: "4"

The limit argument still caps an override.

# Running

Run fans a slice of jobs out to n goroutines and waits for them:

	workers.Run(ctx, workers.ForMixed(8), locators, func(ctx context.Context, i int, loc string) {
	    results[i] = decodeOne(ctx, loc)
	})

Each job index is handed to exactly one worker, so writing results[i] needs
no locking. The pool size is exported as media_decoder_batch_workers while
the pool runs.
*/
package workers
