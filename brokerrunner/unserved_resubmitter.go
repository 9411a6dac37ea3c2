package brokerrunner

import "code.cloudfoundry.org/cdnbroker/brokertypes"

// ResubmitUnserved carries unserved requests into the next round until they
// have been attempted more than maxRetries times. It returns the requests it
// gave up on.
func ResubmitUnserved(batch *Batch, unserved []brokertypes.Request, maxRetries int) []brokertypes.Request {
	retryable := []brokertypes.Request{}
	failed := []brokertypes.Request{}

	for _, request := range unserved {
		request.Attempts++
		if request.Attempts <= maxRetries {
			retryable = append(retryable, request)
		} else {
			failed = append(failed, request)
		}
	}

	batch.ResubmitRequests(retryable)

	return failed
}
