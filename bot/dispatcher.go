package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/viktsys/taifexbot/database"
	"github.com/viktsys/taifexbot/ingest"
	"github.com/viktsys/taifexbot/logger"
	"github.com/viktsys/taifexbot/models"
)

const (
	replyNoData      = "尚無資料"
	replyUnavailable = "暫時無法取得資料，請稍後再試"

	previewRunes = 300
)

// Message is an incoming chat message, independent of the transport.
type Message struct {
	UserID int64
	ChatID int64
	Text   string
}

// Reader is the read side of the store used by /today.
type Reader interface {
	LatestRatios(ctx context.Context, limit int) ([]models.PCRatio, error)
	LatestPositionDay(ctx context.Context) ([]models.FuturesPosition, error)
}

// Runner triggers and inspects ingestion for admin commands.
type Runner interface {
	RunAll(ctx context.Context, opts ingest.Options) ([]*ingest.Result, error)
	Inspect(ctx context.Context, source string) (*ingest.Inspection, error)
}

type Dispatcher struct {
	store  Reader
	runner Runner
	admins map[int64]struct{}
	log    *logger.Logger
}

func NewDispatcher(store Reader, runner Runner, adminIDs []int64, log *logger.Logger) *Dispatcher {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Dispatcher{
		store:  store,
		runner: runner,
		admins: admins,
		log:    log.With("component", "bot"),
	}
}

func (d *Dispatcher) IsAdmin(userID int64) bool {
	_, ok := d.admins[userID]
	return ok
}

// Handle returns the reply text for msg.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) string {
	command, args := parseCommand(msg.Text)
	admin := d.IsAdmin(msg.UserID)

	switch {
	case command == "/today":
		return d.today(ctx)
	case command == "/refetch" && admin:
		return d.refetch(ctx)
	case command == "/raw" && admin:
		source := models.SourceFutures
		if len(args) > 0 {
			source = strings.ToLower(args[0])
		}
		return d.raw(ctx, source)
	default:
		return helpText(admin)
	}
}

// parseCommand lowercases the first word and drops a "@botname" suffix.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	command := strings.ToLower(fields[0])
	if i := strings.IndexByte(command, '@'); i > 0 {
		command = command[:i]
	}
	return command, fields[1:]
}

func helpText(admin bool) string {
	lines := []string{
		"指令：",
		"/today 今日籌碼報表",
		"/help 指令列表",
	}
	if admin {
		lines = append(lines,
			"/refetch 重新抓取今日資料",
			"/raw [futures|pcratio] 檢視原始頁面",
		)
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) today(ctx context.Context) string {
	ratios, err := d.store.LatestRatios(ctx, 1)
	if err != nil {
		d.log.Errorw("failed to load latest ratio", "error", err)
		return replyUnavailable
	}
	positions, err := d.store.LatestPositionDay(ctx)
	if err != nil {
		d.log.Errorw("failed to load latest positions", "error", err)
		return replyUnavailable
	}

	var ratio *models.PCRatio
	if len(ratios) > 0 {
		ratio = &ratios[0]
	}
	report := BuildReport(ratio, positions)
	if report == "" {
		return replyNoData
	}
	return report
}

func (d *Dispatcher) refetch(ctx context.Context) string {
	results, err := d.runner.RunAll(ctx, ingest.Options{Force: true})

	var b strings.Builder
	b.WriteString("重新抓取結果：")
	for _, res := range results {
		fmt.Fprintf(&b, "\n%s %s：寫入 %d 筆", res.Source, res.Date.Format("2006/01/02"), res.Stored)
		if len(res.Incomplete) > 0 {
			fmt.Fprintf(&b, "，不完整 %d", len(res.Incomplete))
		}
	}
	if err != nil {
		d.log.Warnw("refetch failed", "error", err)
		fmt.Fprintf(&b, "\n錯誤：%v", err)
	}
	return b.String()
}

func (d *Dispatcher) raw(ctx context.Context, source string) string {
	got, err := d.runner.Inspect(ctx, source)
	switch {
	case errors.Is(err, ingest.ErrUnknownSource):
		return "未知來源：" + source + "（futures 或 pcratio）"
	case errors.Is(err, database.ErrNotFound):
		return source + " 尚無原始頁面"
	case err != nil:
		return fmt.Sprintf("錯誤：%v", err)
	}

	page := got.Page
	var b strings.Builder
	fmt.Fprintf(&b, "來源：%s\n", page.Source)
	fmt.Fprintf(&b, "日期：%s\n", page.TradeDate.Format("2006/01/02"))
	fmt.Fprintf(&b, "抓取：%s（%s，%s）\n",
		page.FetchedAt.Format("2006-01-02 15:04:05"), page.Encoding, humanize.Bytes(uint64(len(page.Body))))
	fmt.Fprintf(&b, "網址：%s\n", page.URL)

	switch {
	case got.ParseErr != nil:
		fmt.Fprintf(&b, "解析失敗：%v\n", got.ParseErr)
	case got.Positions != nil:
		fmt.Fprintf(&b, "解析：%d 筆，略過 %d 列\n", len(got.Positions.Records), got.Positions.Skipped)
		for _, inc := range got.Positions.Incomplete {
			fmt.Fprintf(&b, "不完整：%s\n", inc)
		}
	case got.Ratio != nil:
		fmt.Fprintf(&b, "解析：未平倉比 %s，成交量比 %s\n",
			got.Ratio.OIRatio.StringFixed(2), got.Ratio.VolumeRatio.StringFixed(2))
	}

	b.WriteString("預覽：\n")
	b.WriteString(preview(page.Body, previewRunes))
	return b.String()
}

// preview collapses whitespace and cuts s to at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
