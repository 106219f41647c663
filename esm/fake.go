package esm

import "context"

// Fake is a scriptable Service used by emm's tests and the demo
// harness: each request/confirm call consumes the next queued
// Result/error pair, or returns StatusSuccess when its queue is empty.
type Fake struct {
	ConnectivityResults []Result
	ConnectivityErrs    []error
	ActivateResults     []Result
	ActivateErrs        []error

	Rejected []int64
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) PDNConnectivityRequest(_ context.Context, _ int64, esmContainer []byte) (Result, error) {
	if len(f.ConnectivityResults) == 0 {
		return Result{Status: StatusSuccess, Pdu: esmContainer}, nil
	}
	r := f.ConnectivityResults[0]
	f.ConnectivityResults = f.ConnectivityResults[1:]
	var err error
	if len(f.ConnectivityErrs) > 0 {
		err = f.ConnectivityErrs[0]
		f.ConnectivityErrs = f.ConnectivityErrs[1:]
	}
	return r, err
}

func (f *Fake) PDNConnectivityReject(_ context.Context, ueID int64) error {
	f.Rejected = append(f.Rejected, ueID)
	return nil
}

func (f *Fake) DefaultBearerActivateConfirm(_ context.Context, _ int64, esmContainer []byte) (Result, error) {
	if len(f.ActivateResults) == 0 {
		return Result{Status: StatusSuccess}, nil
	}
	r := f.ActivateResults[0]
	f.ActivateResults = f.ActivateResults[1:]
	var err error
	if len(f.ActivateErrs) > 0 {
		err = f.ActivateErrs[0]
		f.ActivateErrs = f.ActivateErrs[1:]
	}
	return r, err
}

var _ Service = (*Fake)(nil)
