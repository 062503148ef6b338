package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

type restyHooks struct {
	tel       API
	idcounter *uint64
}

// InstrumentResty reports every request made by the client as debug reports and
// every transport failure as a broken "resty.response".
func InstrumentResty(client *resty.Client, tel API) {
	var idcounter uint64
	h := restyHooks{tel: tel, idcounter: &idcounter}

	client.OnBeforeRequest(h.onBeforeRequest)
	client.OnAfterResponse(h.onAfterResponse)
	client.OnError(h.onError)
}

type exchangeKeyType int

var exchangeKey exchangeKeyType

type exchange struct {
	id uint64
	// only the elapsed duration is reported, so wall clock skew is irrelevant here.
	startTime time.Time
}

func exchangeFrom(ctx context.Context) (exchange, bool) {
	ex, ok := ctx.Value(exchangeKey).(exchange)
	return ex, ok
}

func (h restyHooks) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	id := atomic.AddUint64(h.idcounter, 1)
	ctx := context.WithValue(req.Context(), exchangeKey, exchange{
		id:        id,
		startTime: time.Now(),
	})
	h.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)

	req.SetContext(ctx)
	return nil
}

func (h restyHooks) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ex, ok := exchangeFrom(res.Request.Context())
	if !ok {
		return nil
	}
	h.tel.ReportDebug(
		report_resty_response,
		ex.id,
		time.Since(ex.startTime).String(),
		res.Status(),
	)
	return nil
}

func (h restyHooks) onError(req *resty.Request, err error) {
	var elapsed time.Duration
	ex, ok := exchangeFrom(req.Context())
	if ok {
		elapsed = time.Since(ex.startTime)
	}
	h.tel.ReportBroken(
		report_resty_response,
		err,
		req.Method,
		req.URL,
		elapsed,
	)
}
