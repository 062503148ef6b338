package crea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/assert"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/pool"
	"studiocheck/internal/window"
	"studiocheck/lib/restyutil"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultMaxMonthSteps bounds how far the month paginator is stepped.
const DefaultMaxMonthSteps = 6

const (
	report_browser_client_fetch_studios = "browser-client.fetch-studios"
	report_browser_client_scrape_slot   = "browser-client.scrape-slot"
	report_browser_client_apply_auth    = "browser-client.apply-auth"
)

// bookingPage is the part of a booking page tab the slot scraper needs.
type bookingPage interface {
	Open(ctx context.Context, url string) error
	// MonthLabel returns the label of the displayed month, "" when there is none.
	MonthLabel(ctx context.Context) (string, error)
	// StepMonth clicks the next (or previous) month control, it returns false when the
	// control is disabled.
	StepMonth(ctx context.Context, forward bool) (bool, error)
	// ClickDay clicks the day button, it returns false when the day is missing or
	// disabled.
	ClickDay(ctx context.Context, day int) (bool, error)
	ListTexts(ctx context.Context) ([]string, error)
	BodyText(ctx context.Context) (string, error)
}

var (
	monthLabelYearRegex  = regexp.MustCompile(`(\d{4})年`)
	monthLabelMonthRegex = regexp.MustCompile(`(\d{1,2})月`)
)

// ParseMonthLabel reads the year and month out of a paginator label like "2026年1月".
func ParseMonthLabel(label string) (int, int, bool) {
	yearGroups := monthLabelYearRegex.FindStringSubmatch(label)
	monthGroups := monthLabelMonthRegex.FindStringSubmatch(label)
	if yearGroups == nil || monthGroups == nil {
		return 0, 0, false
	}
	year, _ := strconv.Atoi(yearGroups[1])
	month, _ := strconv.Atoi(monthGroups[1])
	return year, month, true
}

// scrapeSlot opens a booking page, pages to the month of date and returns the start
// times listed for that day. Every dead end (exhausted or disabled paginator, missing
// or disabled day) is a day without bookable times.
func scrapeSlot(ctx context.Context, p bookingPage, url string, date time.Time, maxMonthSteps int) ([]availability.Entry, error) {
	err := p.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", availability.ErrFetch, url, err)
	}

	local := date.In(chrono.Tokyo())
	targetYear, targetMonth := local.Year(), int(local.Month())

	reached := false
	for step := 0; step <= maxMonthSteps; step++ {
		label, err := p.MonthLabel(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: read month label: %w", availability.ErrFetch, err)
		}
		if label == "" {
			// no paginator, the day list is all there is
			reached = true
			break
		}
		year, month, ok := ParseMonthLabel(label)
		if !ok {
			return nil, fmt.Errorf("%w: month label %q", availability.ErrParse, label)
		}

		diff := chrono.MonthsBetween(year, month, targetYear, targetMonth)
		if diff == 0 {
			reached = true
			break
		}
		if step == maxMonthSteps {
			break
		}
		stepped, err := p.StepMonth(ctx, diff > 0)
		if err != nil {
			return nil, fmt.Errorf("%w: step month: %w", availability.ErrFetch, err)
		}
		if !stepped {
			return []availability.Entry{}, nil
		}
	}
	if !reached {
		return []availability.Entry{}, nil
	}

	clicked, err := p.ClickDay(ctx, local.Day())
	if err != nil {
		return nil, fmt.Errorf("%w: click day: %w", availability.ErrFetch, err)
	}
	if !clicked {
		return []availability.Entry{}, nil
	}

	listTexts, err := p.ListTexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read slot list: %w", availability.ErrFetch, err)
	}
	var bodyText string
	if len(listTexts) == 0 || len(ExtractTimes(listTexts, "")) == 0 {
		bodyText, err = p.BodyText(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: read page text: %w", availability.ErrFetch, err)
		}
	}
	return ExtractTimes(listTexts, bodyText), nil
}

type BrowserOptions struct {
	ShowBrowser bool
	// Concurrency is the number of booking pages open at once across every call
	// sharing the client, defaults to 2.
	Concurrency int
	// PageTimeout bounds the scrape of one slot page, defaults to 45 seconds.
	PageTimeout time.Duration
	// Settle is how long to wait for the page after every click, defaults to 1 second.
	Settle time.Duration
	// MaxMonthSteps defaults to DefaultMaxMonthSteps.
	MaxMonthSteps int
}

func (o BrowserOptions) withDefaults() BrowserOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = 2
	}
	if o.PageTimeout <= 0 {
		o.PageTimeout = 45 * time.Second
	}
	if o.Settle <= 0 {
		o.Settle = time.Second
	}
	if o.MaxMonthSteps <= 0 {
		o.MaxMonthSteps = DefaultMaxMonthSteps
	}
	return o
}

// browserDriver starts authenticated browsers and opens booking page tabs in them.
type browserDriver interface {
	Start(state StorageState) (context.Context, context.CancelFunc, error)
	OpenTab(browserCtx context.Context, storageScript string) (context.Context, context.CancelFunc, bookingPage)
	Close()
}

type chromedpDriver struct {
	settle      time.Duration
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

func newChromedpDriver(showBrowser bool, settle time.Duration) chromedpDriver {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1280, 720),
		chromedp.NoSandbox,
		chromedp.Flag("headless", !showBrowser),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(restyutil.BrowserUserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	return chromedpDriver{
		settle:      settle,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
	}
}

func (d chromedpDriver) Start(state StorageState) (context.Context, context.CancelFunc, error) {
	browserCtx, cancel := chromedp.NewContext(d.allocCtx)
	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetCookies(toCookieParams(state.Cookies)),
	)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return browserCtx, cancel, nil
}

func (d chromedpDriver) OpenTab(browserCtx context.Context, storageScript string) (context.Context, context.CancelFunc, bookingPage) {
	tabCtx, cancel := chromedp.NewContext(browserCtx)
	return tabCtx, cancel, chromedpBookingPage{settle: d.settle, storageScript: storageScript}
}

func (d chromedpDriver) Close() {
	d.cancelAlloc()
}

// browserSession is a browser started with one version of the session state. A
// replaced session stays open until its last user releases it.
type browserSession struct {
	ctx           context.Context
	cancel        context.CancelFunc
	version       uint64
	storageScript string

	users   int
	retired bool
}

// BrowserClient scrapes the per slot booking pages in tabs of one shared
// authenticated browser.
type BrowserClient struct {
	opts   BrowserOptions
	auth   *AuthStore
	tel    telemetry.API
	driver browserDriver
	tabs   pool.Limiter

	mutex   sync.Mutex
	current *browserSession
}

func NewBrowserClient(opts BrowserOptions, auth *AuthStore, tel telemetry.API) *BrowserClient {
	opts = opts.withDefaults()
	return newBrowserClient(opts, auth, newChromedpDriver(opts.ShowBrowser, opts.Settle), tel)
}

func newBrowserClient(opts BrowserOptions, auth *AuthStore, driver browserDriver, tel telemetry.API) *BrowserClient {
	assert.NotNil(auth)
	assert.NotNil(driver)
	assert.NotNil(tel)

	opts = opts.withDefaults()
	return &BrowserClient{
		opts:   opts,
		auth:   auth,
		tel:    telemetry.NewScopedAPI("crea_scraper", tel),
		driver: driver,
		tabs:   pool.NewLimiter(opts.Concurrency),
	}
}

// Close shuts down the shared browser.
func (b *BrowserClient) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.current != nil {
		b.current.cancel()
		b.current = nil
	}
	b.driver.Close()
}

func toCookieParams(cookies []Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		switch c.SameSite {
		case "Strict":
			param.SameSite = network.CookieSameSiteStrict
		case "Lax":
			param.SameSite = network.CookieSameSiteLax
		case "None":
			param.SameSite = network.CookieSameSiteNone
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}
		params = append(params, param)
	}
	return params
}

func jsString(value string) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		// strings always marshal
		panic(err)
	}
	return string(encoded)
}

// localStorageScript restores the saved localStorage of whichever origin a document
// belongs to before the page's own scripts run.
func localStorageScript(origins []Origin) string {
	var cases strings.Builder
	for _, o := range origins {
		fmt.Fprintf(&cases, "if (location.origin === %s) {\n", jsString(o.Origin))
		for _, kv := range o.LocalStorage {
			fmt.Fprintf(&cases, "\tlocalStorage.setItem(%s, %s);\n", jsString(kv.Name), jsString(kv.Value))
		}
		cases.WriteString("}\n")
	}
	return "try {\n" + cases.String() + "} catch (e) {}"
}

// acquire returns the browser session of the current session state, starting a new
// browser when the auth store has been reloaded. Every acquire must be paired with a
// release.
func (b *BrowserClient) acquire() (*browserSession, error) {
	state, version, err := b.auth.State()
	if err != nil {
		return nil, err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.current == nil || b.current.version != version {
		browserCtx, cancel, err := b.driver.Start(state)
		if err != nil {
			err = fmt.Errorf("%w: apply session cookies: %w", availability.ErrAuthUnavailable, err)
			b.tel.ReportBroken(report_browser_client_apply_auth, err)
			return nil, err
		}
		if b.current != nil {
			b.retire(b.current)
		}
		b.current = &browserSession{
			ctx:           browserCtx,
			cancel:        cancel,
			version:       version,
			storageScript: localStorageScript(state.Origins),
		}
		b.tel.ReportDebug("started browser session", version, len(state.Cookies), len(state.Origins))
	}
	b.current.users++
	return b.current, nil
}

// retire must be called with the mutex held.
func (b *BrowserClient) retire(s *browserSession) {
	s.retired = true
	if s.users == 0 {
		s.cancel()
	}
}

func (b *BrowserClient) release(s *browserSession) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	s.users--
	if s.retired && s.users == 0 {
		s.cancel()
	}
}

type slotJob struct {
	studio int
	spec   SlotSpec
}

// scrapeJob scrapes one slot page in its own tab once a tab slot is free.
func (b *BrowserClient) scrapeJob(ctx context.Context, session *browserSession, job slotJob, date time.Time) ([]availability.Entry, error) {
	release, err := b.tabs.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: wait for a browser tab: %w", availability.ErrFetch, err)
	}
	defer release()

	tabCtx, cancelTab, p := b.driver.OpenTab(session.ctx, session.storageScript)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.PageTimeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	return scrapeSlot(tabCtx, p, job.spec.BookingURL(), date, b.opts.MaxMonthSteps)
}

// FetchStudios scrapes every applicable slot of the studios named by ids (every
// studio when empty). A failing slot page leaves that slot empty and is recorded on
// its studio.
func (b *BrowserClient) FetchStudios(ctx context.Context, date time.Time, ids []string, w window.Window) ([]availability.Studio, error) {
	ctx, span := tracer.Start(ctx, "BrowserClient.FetchStudios")
	defer span.End()
	span.SetAttributes(
		attribute.String("date", chrono.FormatDate(date)),
		attribute.StringSlice("studios", ids),
	)

	session, err := b.acquire()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		b.tel.ReportBroken(report_browser_client_fetch_studios, err)
		return nil, err
	}
	defer b.release(session)

	selected := selectStudios(ids)
	out := make([]availability.Studio, len(selected))
	var jobs []slotJob
	for i, spec := range selected {
		out[i] = newStudio(spec, date)
		for _, slot := range spec.Slots {
			if Applicable(slot.Days, date, w) {
				jobs = append(jobs, slotJob{studio: i, spec: slot})
			}
		}
	}

	tasks := make([]pool.Task[[]availability.Entry], len(jobs))
	for i, job := range jobs {
		tasks[i] = func(ctx context.Context) ([]availability.Entry, error) {
			return b.scrapeJob(ctx, session, job, date)
		}
	}
	results := pool.Run(ctx, b.opts.Concurrency, tasks)

	studioErrs := make([][]error, len(selected))
	for i, result := range results {
		job := jobs[i]
		entries := result.Value
		if result.Err != nil {
			b.tel.ReportBroken(report_browser_client_scrape_slot, result.Err, out[job.studio].StudioID, job.spec.Type)
			studioErrs[job.studio] = append(studioErrs[job.studio], fmt.Errorf("%s: %w", job.spec.Name, result.Err))
			entries = []availability.Entry{}
		}
		out[job.studio].Slots = append(out[job.studio].Slots, availability.PricedSlot{
			SlotType:  job.spec.Type,
			SlotName:  job.spec.Name,
			Price:     job.spec.Price,
			Hours:     job.spec.Hours,
			TimeSlots: entries,
		})
	}
	for i, errs := range studioErrs {
		if len(errs) > 0 {
			out[i].Error = errors.Join(errs...).Error()
		}
	}
	span.SetAttributes(attribute.Int("pages", len(jobs)))
	return out, nil
}

// chromedpBookingPage implements bookingPage on a chromedp tab context.
type chromedpBookingPage struct {
	settle        time.Duration
	storageScript string
}

const monthLabelScript = `(() => {
	const label = Array.from(document.querySelectorAll('button[disabled]')).find((b) => b.textContent.includes('年'));
	return label ? label.textContent.trim() : '';
})()`

// the paginator arrows are the only buttons holding an image, previous first
const stepMonthScript = `((forward) => {
	const arrows = Array.from(document.querySelectorAll('button')).filter((b) => b.querySelector('img'));
	if (arrows.length === 0) {
		return false;
	}
	const arrow = forward ? arrows[arrows.length - 1] : arrows[0];
	if (arrow.disabled) {
		return false;
	}
	arrow.click();
	return true;
})(%t)`

const clickDayScript = `((day) => {
	const button = Array.from(document.querySelectorAll('button')).find((b) => b.textContent.trim() === day);
	if (!button || button.disabled) {
		return false;
	}
	button.click();
	return true;
})(%q)`

const listTextsScript = `Array.from(document.querySelectorAll('li, [role="listitem"]')).map((item) => (item.textContent || '').trim())`

func (p chromedpBookingPage) Open(ctx context.Context, url string) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(p.storageScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(3*p.settle),
	)
}

func (p chromedpBookingPage) MonthLabel(ctx context.Context) (string, error) {
	var label string
	err := chromedp.Run(ctx, chromedp.Evaluate(monthLabelScript, &label))
	return label, err
}

func (p chromedpBookingPage) click(ctx context.Context, script string) (bool, error) {
	var clicked bool
	err := chromedp.Run(ctx, chromedp.Evaluate(script, &clicked))
	if err != nil || !clicked {
		return false, err
	}
	return true, chromedp.Run(ctx, chromedp.Sleep(p.settle))
}

func (p chromedpBookingPage) StepMonth(ctx context.Context, forward bool) (bool, error) {
	return p.click(ctx, fmt.Sprintf(stepMonthScript, forward))
}

func (p chromedpBookingPage) ClickDay(ctx context.Context, day int) (bool, error) {
	return p.click(ctx, fmt.Sprintf(clickDayScript, strconv.Itoa(day)))
}

func (p chromedpBookingPage) ListTexts(ctx context.Context) ([]string, error) {
	var texts []string
	err := chromedp.Run(ctx, chromedp.Evaluate(listTextsScript, &texts))
	return texts, err
}

func (p chromedpBookingPage) BodyText(ctx context.Context) (string, error) {
	var text string
	err := chromedp.Run(ctx, chromedp.Evaluate(`document.body.innerText`, &text))
	return text, err
}
