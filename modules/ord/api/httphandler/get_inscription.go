package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/pkg/btcutils"
	"github.com/gofiber/fiber/v2"
)

type getInscriptionRequest struct {
	Id string `params:"id"`
}

func (r getInscriptionRequest) parse() (ordinals.InscriptionId, error) {
	id, err := ordinals.NewInscriptionIdFromString(r.Id)
	if err != nil {
		return ordinals.InscriptionId{}, errs.NewPublicError("invalid inscription id")
	}
	return id, nil
}

type inscriptionResult struct {
	Id              ordinals.InscriptionId   `json:"id"`
	Number          int64                    `json:"number"`
	SequenceNumber  uint64                   `json:"sequenceNumber"`
	ContentType     string                   `json:"contentType"`
	ContentEncoding string                   `json:"contentEncoding,omitempty"`
	ContentLength   uint64                   `json:"contentLength"`
	Metaprotocol    string                   `json:"metaprotocol,omitempty"`
	GenesisHeight   uint64                   `json:"genesisHeight"`
	GenesisFee      uint64                   `json:"genesisFee"`
	GenesisTx       string                   `json:"genesisTx"`
	Timestamp       int64                    `json:"timestamp"`
	Sat             *ordinals.Sat            `json:"sat"`
	Charms          []string                 `json:"charms"`
	Parents         []ordinals.InscriptionId `json:"parents"`
	Delegate        *ordinals.InscriptionId  `json:"delegate"`
	SatPoint        ordinals.SatPoint        `json:"satpoint"`
	Output          string                   `json:"output"`
	Offset          uint64                   `json:"offset"`
	Value           *uint64                  `json:"value"`
	Address         string                   `json:"address,omitempty"`
}

type getInscriptionResponse = HttpResponse[inscriptionResult]

func (h *HttpHandler) GetInscription(ctx *fiber.Ctx) (err error) {
	var req getInscriptionRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	id, err := req.parse()
	if err != nil {
		return errors.WithStack(err)
	}

	inscription, err := h.usecase.GetInscription(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("inscription not found")
		}
		return errors.Wrap(err, "error during GetInscription")
	}

	result := h.mapInscription(inscription.InscriptionEntry)
	if output := inscription.Output; output != nil {
		result.Value = &output.Value
		result.Address = btcutils.AddressFromPkScript(output.PkScript, h.network.ChainParams())
	}
	return errors.WithStack(ctx.JSON(getInscriptionResponse{Result: result}))
}

func (h *HttpHandler) mapInscription(entry *entity.InscriptionEntry) *inscriptionResult {
	parents := entry.Parents
	if parents == nil {
		parents = []ordinals.InscriptionId{}
	}
	return &inscriptionResult{
		Id:              entry.Id,
		Number:          entry.Number,
		SequenceNumber:  entry.SequenceNumber,
		ContentType:     entry.ContentType,
		ContentEncoding: entry.ContentEncoding,
		ContentLength:   entry.ContentLength,
		Metaprotocol:    entry.Metaprotocol,
		GenesisHeight:   entry.Height,
		GenesisFee:      entry.Fee,
		GenesisTx:       entry.Id.TxHash.String(),
		Timestamp:       entry.Timestamp.Unix(),
		Sat:             entry.Sat,
		Charms:          entry.Charms.Names(),
		Parents:         parents,
		Delegate:        entry.Delegate,
		SatPoint:        entry.Location,
		Output:          entry.Location.OutPoint.String(),
		Offset:          entry.Location.Offset,
	}
}

const contentSecurityPolicy = "default-src 'unsafe-eval' 'unsafe-inline'"

// GetContent serves the raw inscription body. Content is sandboxed so it cannot load anything off-chain.
func (h *HttpHandler) GetContent(ctx *fiber.Ctx) (err error) {
	var req getInscriptionRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	id, err := req.parse()
	if err != nil {
		return errors.WithStack(err)
	}

	content, err := h.usecase.GetInscriptionContent(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return notFound("inscription content not found")
		}
		return errors.Wrap(err, "error during GetInscriptionContent")
	}

	contentType := content.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	ctx.Set(fiber.HeaderContentType, contentType)
	ctx.Set(fiber.HeaderContentSecurityPolicy, contentSecurityPolicy)
	ctx.Set(fiber.HeaderCacheControl, "public, max-age=1209600, immutable")
	if content.ContentEncoding != "" {
		ctx.Set(fiber.HeaderContentEncoding, content.ContentEncoding)
	}
	return errors.WithStack(ctx.Send(content.Body))
}

type getInscriptionsRequest struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

const (
	defaultInscriptionsLimit = 100
	maxInscriptionsLimit     = 100
)

func (r *getInscriptionsRequest) Validate() error {
	var errList []error
	if r.Page < 0 {
		errList = append(errList, errors.New("'page' must be non-negative"))
	}
	if r.Limit < 0 || r.Limit > maxInscriptionsLimit {
		errList = append(errList, errors.Errorf("'limit' must be between 1 and %d", maxInscriptionsLimit))
	}
	if r.Limit == 0 {
		r.Limit = defaultInscriptionsLimit
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type getInscriptionsResult struct {
	Ids  []ordinals.InscriptionId `json:"ids"`
	Page int                      `json:"page"`
	More bool                     `json:"more"`
}

type getInscriptionsResponse = HttpResponse[getInscriptionsResult]

// GetInscriptions lists inscriptions newest first.
func (h *HttpHandler) GetInscriptions(ctx *fiber.Ctx) (err error) {
	var req getInscriptionsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errs.NewPublicError("invalid query")
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	entries, err := h.usecase.GetLatestInscriptions(ctx.UserContext(), req.Limit+1, req.Page*req.Limit)
	if err != nil {
		return errors.Wrap(err, "error during GetLatestInscriptions")
	}

	more := len(entries) > req.Limit
	if more {
		entries = entries[:req.Limit]
	}
	ids := make([]ordinals.InscriptionId, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.Id)
	}
	return errors.WithStack(ctx.JSON(getInscriptionsResponse{
		Result: &getInscriptionsResult{Ids: ids, Page: req.Page, More: more},
	}))
}

