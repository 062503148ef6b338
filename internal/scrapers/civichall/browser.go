package civichall

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"studiocheck/internal/availability"
	"studiocheck/internal/components/assert"
	"studiocheck/internal/components/chrono"
	"studiocheck/internal/components/telemetry"
	"studiocheck/internal/pool"
	"studiocheck/lib/htmlutil"
	"time"

	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultMaxSteps bounds the number of calendar clicks per fetch.
const DefaultMaxSteps = 60

const facilityMenuLabel = "施設毎の空き状況"

const (
	labelMonthForward = "1ヶ月後"
	labelWeekForward  = "1週間後"
	labelDayForward   = "1日後"
	labelMonthBack    = "1ヶ月前"
	labelWeekBack     = "1週間前"
	labelDayBack      = "1日前"
)

// calendarPage is the part of a browser tab the navigator needs.
type calendarPage interface {
	// HeadingText returns the text of the h3 holding the displayed date.
	HeadingText(ctx context.Context) (string, error)
	// ClickLabel clicks the control labeled label and waits for the page to settle.
	ClickLabel(ctx context.Context, label string) error
	HTML(ctx context.Context) (string, error)
}

var headingRegex = regexp.MustCompile(`(\d{4}).*?年\s*(\d{1,2})月\s*(\d{1,2})日`)

// ParseHeading reads the displayed date out of the calendar heading.
func ParseHeading(text string) (time.Time, error) {
	groups := headingRegex.FindStringSubmatch(text)
	if groups == nil {
		return time.Time{}, fmt.Errorf("%w: could not parse date heading %q", availability.ErrParse, text)
	}
	year, _ := strconv.Atoi(groups[1])
	month, _ := strconv.Atoi(groups[2])
	day, _ := strconv.Atoi(groups[3])
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, chrono.Tokyo()), nil
}

// NextStep picks the coarsest calendar control that does not overshoot target.
// It returns false once current is already the target day.
func NextStep(current, target time.Time) (string, bool) {
	diff := chrono.DaysBetween(current, target)
	switch {
	case diff == 0:
		return "", false
	case diff > 30:
		return labelMonthForward, true
	case diff > 7:
		return labelWeekForward, true
	case diff > 0:
		return labelDayForward, true
	case diff < -30:
		return labelMonthBack, true
	case diff < -7:
		return labelWeekBack, true
	default:
		return labelDayBack, true
	}
}

// navigate clicks through the calendar until it displays target, giving up with
// ErrNavigationTimeout after maxSteps clicks.
func navigate(ctx context.Context, page calendarPage, target time.Time, maxSteps int) (int, error) {
	for step := 0; ; step++ {
		heading, err := page.HeadingText(ctx)
		if err != nil {
			return step, fmt.Errorf("%w: could not read date heading: %w", availability.ErrParse, err)
		}
		current, err := ParseHeading(heading)
		if err != nil {
			return step, err
		}

		label, ok := NextStep(current, target)
		if !ok {
			return step, nil
		}
		if step >= maxSteps {
			return step, fmt.Errorf(
				"%w: could not navigate to %s within %d steps",
				availability.ErrNavigationTimeout, chrono.FormatDate(target), maxSteps,
			)
		}
		err = page.ClickLabel(ctx, label)
		if err != nil {
			return step, fmt.Errorf("%w: click %s: %w", availability.ErrFetch, label, err)
		}
	}
}

type BrowserOptions struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// ShowBrowser runs Chrome with a visible window.
	ShowBrowser bool
	// MaxSteps defaults to DefaultMaxSteps.
	MaxSteps int
	// Timeout bounds one whole fetch, defaults to 90 seconds.
	Timeout time.Duration
	// MaxTabs is the number of fetches that may drive a tab at once, defaults to 1.
	MaxTabs int
}

// BrowserClient drives the booking portal in headless Chrome, for when the form
// POST is rejected.
type BrowserClient struct {
	opts        BrowserOptions
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabs        pool.Limiter
	tel         telemetry.API
}

func NewBrowserClient(opts BrowserOptions, tel telemetry.API) *BrowserClient {
	assert.NotNil(tel)

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.MaxTabs <= 0 {
		opts.MaxTabs = 1
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1280, 1024),
		chromedp.NoSandbox,
		chromedp.Flag("headless", !opts.ShowBrowser),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &BrowserClient{
		opts:        opts,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		tabs:        pool.NewLimiter(opts.MaxTabs),
		tel:         telemetry.NewScopedAPI("civichall_scraper", tel),
	}
}

// Close shuts down the browser process.
func (b *BrowserClient) Close() {
	b.cancelAlloc()
}

func (b *BrowserClient) FetchRooms(ctx context.Context, date time.Time, ids []string) ([]availability.Room, error) {
	ctx, span := tracer.Start(ctx, "BrowserClient.FetchRooms")
	defer span.End()
	span.SetAttributes(attribute.String("date", chrono.FormatDate(date)))

	release, err := b.tabs.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	page := chromedpPage{settle: 500 * time.Millisecond}
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(b.opts.BaseURL+"/index.php"),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		err = fmt.Errorf("%w: open portal: %w", availability.ErrFetch, err)
		span.SetStatus(codes.Error, "failed to open portal")
		b.tel.ReportBroken(report_browser_client_fetch_rooms, err)
		return nil, err
	}
	err = page.ClickLabel(tabCtx, facilityMenuLabel)
	if err != nil {
		err = fmt.Errorf("%w: open facility calendar: %w", availability.ErrFetch, err)
		span.SetStatus(codes.Error, "failed to open facility calendar")
		b.tel.ReportBroken(report_browser_client_fetch_rooms, err)
		return nil, err
	}

	steps, err := navigate(tabCtx, page, date, b.opts.MaxSteps)
	span.SetAttributes(attribute.Int("steps", steps))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		b.tel.ReportBroken(report_browser_client_navigate, err, steps)
		return nil, err
	}

	html, err := page.HTML(tabCtx)
	if err != nil {
		err = fmt.Errorf("%w: read page: %w", availability.ErrFetch, err)
		b.tel.ReportBroken(report_browser_client_fetch_rooms, err)
		return nil, err
	}
	doc, err := htmlutil.ParseString(ctx, FacilityID, html)
	if err != nil {
		err = fmt.Errorf("%w: %w", availability.ErrParse, err)
		b.tel.ReportBroken(report_parser_parse_rooms, err)
		return nil, err
	}
	rooms, err := ParseRooms(doc, date)
	if err != nil {
		b.tel.ReportBroken(report_parser_parse_rooms, err)
		return nil, err
	}
	b.tel.ReportDebug("browser fetch finished", chrono.FormatDate(date), steps, len(rooms))
	return FilterRooms(rooms, ids), nil
}

// chromedpPage implements calendarPage on a chromedp tab context.
type chromedpPage struct {
	settle time.Duration
}

const headingScript = `(() => {
	const heading = Array.from(document.querySelectorAll('h3')).find((h) => h.textContent.includes('年'));
	return heading ? heading.textContent : '';
})()`

// clickScript clicks the first link, button or input whose label equals the given
// label, falling back to one that contains it.
const clickScript = `((label) => {
	const controls = Array.from(document.querySelectorAll('a, button, input[type=button], input[type=submit]'));
	const text = (el) => (el.textContent || el.value || '').trim();
	const control = controls.find((el) => text(el) === label) || controls.find((el) => text(el).includes(label));
	if (!control) {
		return false;
	}
	control.click();
	return true;
})(%q)`

func (p chromedpPage) HeadingText(ctx context.Context) (string, error) {
	var heading string
	err := chromedp.Run(ctx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(headingScript, &heading),
	)
	if err != nil {
		return "", err
	}
	if heading == "" {
		return "", fmt.Errorf("no date heading on page")
	}
	return heading, nil
}

func (p chromedpPage) ClickLabel(ctx context.Context, label string) error {
	var clicked bool
	err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(clickScript, label), &clicked))
	if err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no control labeled %q", label)
	}
	return chromedp.Run(ctx,
		chromedp.Sleep(p.settle),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p chromedpPage) HTML(ctx context.Context) (string, error) {
	var html string
	err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}
