package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"modguard/model"
	"modguard/rules"
	"modguard/utils"
)

// ActionScheduler is the slice of the scheduler the engine needs to register
// and cancel follow-up timed actions.
type ActionScheduler interface {
	Schedule(action model.TimedAction) error
	Cancel(id string) (bool, error)
	CancelFor(guildID, userID string, kind model.ActionKind) (bool, error)
}

// Engine orchestrates rule evaluation, the violation ledger, timed actions
// and platform enforcement. All collaborators are injected at construction.
type Engine struct {
	db      *sqlx.DB
	catalog *rules.Catalog
	sched   ActionScheduler
	enf     Enforcer
	cfg     *model.Config
	logger  *zap.Logger
	locks   *utils.KeyedMutex

	now func() time.Time
}

// New creates the enforcement engine.
func New(db *sqlx.DB, catalog *rules.Catalog, sched ActionScheduler, enf Enforcer, cfg *model.Config, logger *zap.Logger) *Engine {
	return &Engine{
		db:      db,
		catalog: catalog,
		sched:   sched,
		enf:     enf,
		cfg:     cfg,
		logger:  logger.Named("engine"),
		locks:   utils.NewKeyedMutex(),
		now:     time.Now,
	}
}

// Catalog exposes the loaded rule catalog, e.g. for command autocompletion.
func (e *Engine) Catalog() *rules.Catalog {
	return e.catalog
}

func userKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// renderReason fills the {count}, {rule}, {duration} and {days} placeholders
// of a configured reason template.
func renderReason(template string, count int, ruleText string, duration time.Duration, days int) string {
	if template == "" {
		template = "Violation of server rules"
	}
	r := strings.NewReplacer(
		"{count}", strconv.Itoa(count),
		"{rule}", ruleText,
		"{duration}", utils.FormatDuration(duration),
		"{days}", strconv.Itoa(days),
	)
	return r.Replace(template)
}
