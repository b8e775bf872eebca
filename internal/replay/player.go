package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/calvinalkan/civicache/internal/vclock"
	"github.com/calvinalkan/civicache/pkg/civicache"
)

// Player applies events to a cache.
type Player struct {
	cache    *civicache.Cache
	clock    *vclock.Clock
	log      *zap.Logger
	bindings map[string]string
}

// NewPlayer returns a player for c. clock may be nil, in which case advance
// events fail; log may be nil.
func NewPlayer(c *civicache.Cache, clock *vclock.Clock, log *zap.Logger) *Player {
	if log == nil {
		log = zap.NewNop()
	}

	return &Player{
		cache:    c,
		clock:    clock,
		log:      log,
		bindings: make(map[string]string),
	}
}

// Run applies events in order and stops at the first error or when ctx is
// done.
func (p *Player) Run(ctx context.Context, events []Event) error {
	for _, ev := range events {
		err := ctx.Err()
		if err != nil {
			return err
		}

		err = p.Apply(ev)
		if err != nil {
			if ev.Line > 0 {
				return fmt.Errorf("line %d: %w", ev.Line, err)
			}

			return err
		}
	}

	return nil
}

// Bindings returns a copy of the names recorded by "bind".
func (p *Player) Bindings() map[string]string {
	return maps.Clone(p.bindings)
}

// Ops returns every op name the player understands, sorted.
func Ops() []string {
	return slices.Sorted(maps.Keys(handlers))
}

type handler func(p *Player, ev Event) error

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"set_report_list":        (*Player).setReportList,
		"set_comment_list":       (*Player).setCommentList,
		"set_stats":              (*Player).setStats,
		"store_report":           (*Player).storeReport,
		"store_comment":          (*Player).storeComment,
		"patch_report":           (*Player).patchReport,
		"patch_comment":          (*Player).patchComment,
		"set_status":             (*Player).setStatus,
		"delta":                  (*Player).delta,
		"like":                   (*Player).like,
		"comment_delta":          (*Player).commentDelta,
		"prepend_report":         (*Player).prependReport,
		"append_report":          (*Player).appendReport,
		"prepend_comment":        (*Player).prependComment,
		"append_comment":         (*Player).appendComment,
		"remove_report":          (*Player).removeReport,
		"remove_comment":         (*Player).removeComment,
		"report_created":         (*Player).reportCreated,
		"report_deleted":         (*Player).reportDeleted,
		"user_registered":        (*Player).userRegistered,
		"add_comment":            (*Player).addComment,
		"delete_comment":         (*Player).deleteComment,
		"evict_list":             (*Player).evictList,
		"create_pending_report":  (*Player).createPendingReport,
		"create_pending_comment": (*Player).createPendingComment,
		"confirm":                (*Player).confirm,
		"fail":                   (*Player).fail,
		"expire":                 (*Player).expire,
		"advance":                (*Player).advance,
	}
}

// Apply applies a single event.
func (p *Player) Apply(ev Event) error {
	h, ok := handlers[ev.Op]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOp, ev.Op)
	}

	err := h(p, ev)
	if err != nil {
		return fmt.Errorf("%s: %w", ev.Op, err)
	}

	p.log.Debug("applied event", zap.String("op", ev.Op), zap.Int("line", ev.Line))

	return nil
}

// resolve maps "$name" to its bound ID; other IDs pass through.
func (p *Player) resolve(id string) (string, error) {
	name, ok := strings.CutPrefix(id, "$")
	if !ok {
		return id, nil
	}

	bound, ok := p.bindings[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBinding, id)
	}

	return bound, nil
}

func (p *Player) requireID(field, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	return p.resolve(id)
}

func requirePayload(field string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	return nil
}

func (p *Player) report(ev Event) (civicache.Report, error) {
	err := requirePayload("report", ev.Report)
	if err != nil {
		return civicache.Report{}, err
	}

	r, err := civicache.DecodeReport(ev.Report)
	if err != nil {
		return civicache.Report{}, err
	}

	r.ID, err = p.resolve(r.ID)

	return r, err
}

func (p *Player) comment(ev Event) (civicache.Comment, error) {
	err := requirePayload("comment", ev.Comment)
	if err != nil {
		return civicache.Comment{}, err
	}

	cm, err := civicache.DecodeComment(ev.Comment)
	if err != nil {
		return civicache.Comment{}, err
	}

	cm.ID, err = p.resolve(cm.ID)
	if err != nil {
		return civicache.Comment{}, err
	}

	cm.ReportID, err = p.resolve(cm.ReportID)

	return cm, err
}

func (p *Player) setReportList(ev Event) error {
	filter, err := civicache.ParseFilter(ev.Filter)
	if err != nil {
		return err
	}

	var reports []civicache.Report

	if len(ev.Reports) > 0 {
		reports, err = civicache.DecodeReports(ev.Reports)
		if err != nil {
			return err
		}
	}

	p.cache.SetReportList(ev.Query, filter, reports)

	return nil
}

func (p *Player) setCommentList(ev Event) error {
	reportID, err := p.requireID("report_id", ev.ReportID)
	if err != nil {
		return err
	}

	var comments []civicache.Comment

	if len(ev.Comments) > 0 {
		comments, err = civicache.DecodeComments(ev.Comments)
		if err != nil {
			return err
		}
	}

	p.cache.SetCommentList(reportID, comments)

	return nil
}

func (p *Player) setStats(ev Event) error {
	err := requirePayload("stats", ev.Stats)
	if err != nil {
		return err
	}

	s, err := civicache.DecodeStats(ev.Stats)
	if err != nil {
		return err
	}

	p.cache.SetStats(s)

	return nil
}

func (p *Player) storeReport(ev Event) error {
	r, err := p.report(ev)
	if err != nil {
		return err
	}

	p.cache.StoreReport(r)

	return nil
}

func (p *Player) storeComment(ev Event) error {
	cm, err := p.comment(ev)
	if err != nil {
		return err
	}

	p.cache.StoreComment(cm)

	return nil
}

func (p *Player) patchReport(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	err = requirePayload("patch", ev.Patch)
	if err != nil {
		return err
	}

	var patch civicache.ReportPatch

	err = json.Unmarshal(ev.Patch, &patch)
	if err != nil {
		return fmt.Errorf("%w: patch: %w", civicache.ErrInvalidPayload, err)
	}

	p.cache.PatchReport(id, patch)

	return nil
}

func (p *Player) patchComment(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	err = requirePayload("patch", ev.Patch)
	if err != nil {
		return err
	}

	var patch civicache.CommentPatch

	err = json.Unmarshal(ev.Patch, &patch)
	if err != nil {
		return fmt.Errorf("%w: patch: %w", civicache.ErrInvalidPayload, err)
	}

	p.cache.PatchComment(id, patch)

	return nil
}

func (p *Player) setStatus(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	if ev.Status == "" {
		return fmt.Errorf("%w: status", ErrMissingField)
	}

	p.cache.SetReportStatus(id, ev.Status)

	return nil
}

func (p *Player) delta(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	if ev.Field == "" {
		return fmt.Errorf("%w: field", ErrMissingField)
	}

	p.cache.ApplyDelta(kindOr(ev.Kind, civicache.KindReport), id, ev.Field, ev.Delta)

	return nil
}

func (p *Player) like(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	p.cache.ApplyLikeDelta(kindOr(ev.Kind, civicache.KindReport), id, ev.Delta)

	return nil
}

func (p *Player) commentDelta(ev Event) error {
	reportID, err := p.requireID("report_id", ev.ReportID)
	if err != nil {
		return err
	}

	p.cache.ApplyCommentDelta(reportID, ev.Delta)

	return nil
}

func (p *Player) prependReport(ev Event) error {
	r, err := p.report(ev)
	if err != nil {
		return err
	}

	p.cache.PrependReport(r)

	return nil
}

func (p *Player) appendReport(ev Event) error {
	r, err := p.report(ev)
	if err != nil {
		return err
	}

	p.cache.AppendReport(r)

	return nil
}

func (p *Player) prependComment(ev Event) error {
	cm, err := p.comment(ev)
	if err != nil {
		return err
	}

	p.cache.PrependComment(cm)

	return nil
}

func (p *Player) appendComment(ev Event) error {
	cm, err := p.comment(ev)
	if err != nil {
		return err
	}

	p.cache.AppendComment(cm)

	return nil
}

func (p *Player) removeReport(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	p.cache.RemoveReport(id)

	return nil
}

func (p *Player) removeComment(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	p.cache.RemoveComment(id)

	return nil
}

func (p *Player) reportCreated(ev Event) error {
	r, err := p.report(ev)
	if err != nil {
		return err
	}

	p.cache.ReportCreated(r)

	return nil
}

func (p *Player) reportDeleted(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	p.cache.ReportDeleted(id)

	return nil
}

func (p *Player) userRegistered(Event) error {
	p.cache.UserRegistered()

	return nil
}

func (p *Player) addComment(ev Event) error {
	cm, err := p.comment(ev)
	if err != nil {
		return err
	}

	p.cache.AddComment(cm)

	return nil
}

func (p *Player) deleteComment(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	reportID, err := p.resolve(ev.ReportID)
	if err != nil {
		return err
	}

	p.cache.DeleteComment(reportID, id)

	return nil
}

func (p *Player) evictList(ev Event) error {
	if kindOr(ev.Kind, civicache.KindReport) == civicache.KindComment {
		reportID, err := p.requireID("report_id", ev.ReportID)
		if err != nil {
			return err
		}

		p.cache.EvictList(civicache.CommentListKey(reportID))

		return nil
	}

	filter, err := civicache.ParseFilter(ev.Filter)
	if err != nil {
		return err
	}

	p.cache.EvictList(civicache.ReportListKey(ev.Query, filter))

	return nil
}

func (p *Player) createPendingReport(ev Event) error {
	r, err := p.report(ev)
	if err != nil {
		return err
	}

	p.bind(ev.Bind, p.cache.CreatePendingReport(r))

	return nil
}

func (p *Player) createPendingComment(ev Event) error {
	cm, err := p.comment(ev)
	if err != nil {
		return err
	}

	p.bind(ev.Bind, p.cache.CreatePendingComment(cm))

	return nil
}

func (p *Player) bind(name, id string) {
	if name == "" {
		return
	}

	p.bindings[name] = id
	p.log.Debug("bound temporary id", zap.String("name", name), zap.String("id", id))
}

func (p *Player) confirm(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	if ev.ServerID == "" {
		return fmt.Errorf("%w: server_id", ErrMissingField)
	}

	parentID, err := p.resolve(ev.ReportID)
	if err != nil {
		return err
	}

	p.cache.SwapID(kindOr(ev.Kind, civicache.KindReport), id, ev.ServerID, parentID)

	return nil
}

func (p *Player) fail(ev Event) error {
	id, err := p.requireID("id", ev.ID)
	if err != nil {
		return err
	}

	p.cache.FailPending(kindOr(ev.Kind, civicache.KindReport), id)

	return nil
}

func (p *Player) expire(Event) error {
	n := p.cache.ExpirePending()
	p.log.Debug("expired pending entities", zap.Int("count", n))

	return nil
}

func (p *Player) advance(ev Event) error {
	if p.clock == nil {
		return ErrNoClock
	}

	d, err := time.ParseDuration(ev.By)
	if err != nil {
		return fmt.Errorf("%w: by: %w", ErrInvalidScript, err)
	}

	if d < 0 {
		return fmt.Errorf("%w: by must not be negative", ErrInvalidScript)
	}

	p.clock.Advance(d)

	return nil
}

func kindOr(k, fallback civicache.Kind) civicache.Kind {
	if k == "" {
		return fallback
	}

	return k
}
