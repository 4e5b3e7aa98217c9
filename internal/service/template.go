package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
)

// MissingValue replaces placeholders that have no entry in the render
// context. Rendering must always produce a complete email, so unknown
// keys become this sentinel instead of an error.
const MissingValue = "[dato no disponible]"

// TemplateSource looks up stored templates by name.
type TemplateSource interface {
	GetByName(ctx context.Context, name string) (*model.EmailTemplate, error)
}

// TemplateEngine renders subject/body pairs from named templates.
// Placeholders use {key} syntax and are substituted from a flattened
// string context. Unknown template names and store failures fall back
// to a built-in template set so a missing or corrupt template record
// never fails the pipeline.
type TemplateEngine struct {
	store TemplateSource
}

// NewTemplateEngine builds an engine over the given store. A nil
// store is allowed and serves only the built-in set.
func NewTemplateEngine(store TemplateSource) *TemplateEngine {
	return &TemplateEngine{store: store}
}

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z0-9_.]+\}`)

// Render produces the subject and body for a template name. It never
// fails: lookup errors fall back to built-ins and unresolved
// placeholders resolve to the sentinel value.
func (e *TemplateEngine) Render(ctx context.Context, name string, data map[string]string) (string, string) {
	subject, body := e.lookup(ctx, name)
	return substitute(subject, data), substitute(body, data)
}

func (e *TemplateEngine) lookup(ctx context.Context, name string) (string, string) {
	if e.store != nil {
		t, err := e.store.GetByName(ctx, name)
		if err == nil {
			return t.Subject, t.Body
		}
		if !errors.Is(err, repository.ErrTemplateNotFound) {
			log.Printf("templates: lookup %q failed, using fallback: %v", name, err)
		}
	}
	if t, ok := fallbackTemplates[name]; ok {
		return t.Subject, t.Body
	}
	return fallbackDefault.Subject, fallbackDefault.Body
}

// substitute replaces every {key} present in the context, then sweeps
// whatever placeholders remain with the sentinel.
func substitute(text string, data map[string]string) string {
	for key, value := range data {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return placeholderRe.ReplaceAllString(text, MissingValue)
}

// BuildContext flattens member, show and extra key/values into one
// placeholder context. Show metadata keys are included as-is, so a
// show carrying discount_details feeds {discount_details} directly.
// Later sources win on key collisions: member < show < metadata < extra.
func BuildContext(member *model.Member, show *model.Show, extra map[string]string) map[string]string {
	ctx := make(map[string]string, 16)
	if member != nil {
		ctx["member_name"] = member.Name
		ctx["member_email"] = member.Email
	}
	if show != nil {
		ctx["show_title"] = show.Title
		ctx["show_artist"] = show.Artist
		ctx["show_venue"] = show.Venue
		ctx["show_code"] = show.Code
		ctx["show_date"] = show.Date.Format("02/01/2006")
		for k, v := range show.Metadata {
			ctx[k] = v
		}
	}
	for k, v := range extra {
		ctx[k] = v
	}
	return ctx
}

// CandidateList renders the candidate shows of an ambiguous match as
// the numbered list embedded in clarification emails.
func CandidateList(candidates []model.ShowSummary) string {
	var sb strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s - %s en %s (%s)\n",
			i+1, c.Title, c.Artist, c.Venue, c.Date.Format("02/01/2006"))
	}
	return sb.String()
}

// Built-in fallback templates, used when the store has no row for a
// name. Wording follows the production template set.
var fallbackTemplates = map[string]model.EmailTemplate{
	"approval": {
		Subject: "¡Tu descuento para {show_title} fue aprobado!",
		Body: "¡Hola {member_name}!\n\nBuenas noticias: tu solicitud de descuento para {show_title} " +
			"de {show_artist} en {show_venue} ({show_date}) fue aprobada.\n\n" +
			"Detalles del descuento:\n{discount_details}\n\n" +
			"Código de descuento: {discount_code}\nVálido hasta: {expiry_date}\n\n" +
			"Presentá este email en la boletería para hacerlo válido. ¡Que lo disfrutes!\n\n" +
			"- El equipo de IndieHOY",
	},
	"clarification_multiple": {
		Subject: "Necesitamos más información sobre tu solicitud",
		Body: "Hola {member_name},\n\nRecibimos tu solicitud de descuento para \"{description}\" " +
			"y encontramos varios shows que podrían coincidir:\n\n{candidate_list}\n" +
			"Respondé este email indicando cuál de estos shows es el que buscás y " +
			"procesamos tu descuento.\n\n- El equipo de IndieHOY",
	},
	"clarification_not_found": {
		Subject: "No encontramos el show que buscás",
		Body: "Hola {member_name},\n\nRecibimos tu solicitud de descuento para \"{description}\" " +
			"pero no encontramos un show que coincida.\n\n" +
			"Verificá la escritura del artista o del show y respondé este email con más " +
			"detalles; con gusto te ayudamos a encontrarlo.\n\n- El equipo de IndieHOY",
	},
	"rejection_member_not_found": {
		Subject: "Solicitud de descuento - email no registrado",
		Body: "Hola {member_name},\n\nNo pudimos procesar tu solicitud porque el email " +
			"{member_email} no está registrado en la comunidad.\n\n" +
			"Si todavía no sos parte, sumate en indiehoy.com/comunidad.\n\n- El equipo de IndieHOY",
	},
	"rejection_subscription_inactive": {
		Subject: "Solicitud de descuento - suscripción inactiva",
		Body: "Hola {member_name},\n\nTu suscripción a la comunidad no está activa, por lo que " +
			"no pudimos procesar tu solicitud de descuento.\n\n" +
			"Reactivá tu suscripción y volvé a intentarlo.\n\n- El equipo de IndieHOY",
	},
	"rejection_fees_overdue": {
		Subject: "Solicitud de descuento - cuotas pendientes",
		Body: "Hola {member_name},\n\nTenés cuotas mensuales pendientes de pago. " +
			"Regularizá tu situación para acceder a los descuentos de la comunidad.\n\n" +
			"- El equipo de IndieHOY",
	},
	"rejection_duplicate_request": {
		Subject: "Solicitud de descuento - solicitud duplicada",
		Body: "Hola {member_name},\n\nYa tenés una solicitud activa para {show_description}. " +
			"Esperá la respuesta de esa solicitud antes de pedir nuevamente.\n\n- El equipo de IndieHOY",
	},
	"rejection_no_discounts_available": {
		Subject: "Solicitud de descuento - sin cupos disponibles",
		Body: "Hola {member_name},\n\nLamentablemente los descuentos para {show_description} " +
			"ya se agotaron.\n\nSeguí atento a nuestras redes: todas las semanas sumamos " +
			"nuevos shows con descuento.\n\n- El equipo de IndieHOY",
	},
	"rejection_show_not_found": {
		Subject: "Solicitud de descuento - show no disponible",
		Body: "Hola {member_name},\n\nEl show que indicaste no está disponible para " +
			"descuentos en este momento.\n\n- El equipo de IndieHOY",
	},
	"rejection_technical_error": {
		Subject: "Solicitud de descuento - error al procesar",
		Body: "Hola {member_name},\n\nTuvimos un problema técnico al procesar tu solicitud. " +
			"Nuestro equipo ya fue notificado; volvé a intentarlo en unos minutos.\n\n" +
			"- El equipo de IndieHOY",
	},
}

var fallbackDefault = model.EmailTemplate{
	Subject: "Actualización sobre tu solicitud de descuento",
	Body: "Hola {member_name},\n\nHay una actualización sobre tu solicitud de descuento " +
		"para {show_description}.\n\n- El equipo de IndieHOY",
}
