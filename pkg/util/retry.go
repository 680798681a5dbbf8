/*
Copyright 2016 The Rook Authors. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package util

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// RetryWithContext attempts f until it succeeds, up to maxRetries retries, sleeping for the
// delay in between attempts. It gives up early when the context is done.
func RetryWithContext(ctx context.Context, maxRetries int, delay time.Duration, f func() error) error {
	tries := 0
	for {
		err := f()
		if err == nil {
			return nil
		}

		tries++
		if tries > maxRetries {
			return errors.Wrap(err, "max retries exceeded")
		}

		logger.Infof("retrying after %v, last error: %v", delay, err)
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "stopped retrying")
		case <-time.After(delay):
		}
	}
}
