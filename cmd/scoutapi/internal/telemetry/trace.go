package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/apperr"
)

// Span attribute keys shared by the scouting services.
const (
	AttrFarmID        = "farm.id"
	AttrSessionID     = "session.id"
	AttrSessionStatus = "session.status"
	AttrObservationID = "observation.id"
	AttrPhotoLocalID  = "photo.local_id"
	AttrSpeciesCode   = "observation.species_code"
	AttrBatchSize     = "observation.batch_size"
	AttrActorID       = "actor.id"
	AttrActorRole     = "actor.role"
	AttrSyncCursor    = "sync.cursor"
	AttrHeatmapWeek   = "heatmap.week"
	AttrHeatmapYear   = "heatmap.year"

	attrRejection = "scout.rejection"
)

// StartSpan opens a span on the named tracer, e.g.
//
//	ctx, span := telemetry.StartSpan(ctx, tracerName, "session.Create",
//	    attribute.String(telemetry.AttrFarmID, farmID))
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError annotates span with err. Rejections the caller caused (stale
// versions, locked sessions, missing rows, denied access) are attached as a
// "rejected" event and leave the span status unset; anything else marks the
// span failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	if kind := rejectionKind(err); kind != "" {
		span.AddEvent("rejected", trace.WithAttributes(
			attribute.String(attrRejection, kind),
			attribute.String("error.message", apperr.Detail(err)),
		))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func rejectionKind(err error) string {
	for _, kind := range []error{
		apperr.ErrNotFound,
		apperr.ErrBadRequest,
		apperr.ErrConflict,
		apperr.ErrForbidden,
		apperr.ErrUnauthorized,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ""
}
