package dialogue

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Commands understood from the initial step.
const (
	CommandLookProducts = "look_products"
	CommandCheckOrder   = "check_order"
	CommandShowProducts = "show_products"
)

// User-facing messages that callers and tests compare against.
const (
	MenuMessage         = "Hi! How can I help you today?"
	NotFoundMessage     = "Sorry, I couldn't find that. Please choose again."
	ApologyMessage      = "Sorry, I'm having trouble answering right now. Please try again in a moment or pick an option below."
	EmptyCatalogMessage = "Our catalog is being updated. Please check back soon."
	NoMatchMessage      = "Sorry, no products match your choices. Would you like to try something else?"
	SuggestionMessage   = "Here are some products that match your choices:"
	OrderIDPrompt       = "Please enter your order ID."
)

// Option is a suggested quick reply: Label is shown, Value is sent back.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ProductSuggestion points at a product page.
type ProductSuggestion struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// Reply is what the bot says for one turn.
type Reply struct {
	Message  string              `json:"message"`
	Options  []Option            `json:"options,omitempty"`
	Products []ProductSuggestion `json:"products,omitempty"`
}

// MenuOptions are the entry points offered whenever the dialogue is idle.
func MenuOptions() []Option {
	return []Option{
		{Label: "Browse products", Value: CommandLookProducts},
		{Label: "Check order status", Value: CommandCheckOrder},
	}
}

func menuReply(msg string) Reply {
	return Reply{Message: msg, Options: MenuOptions()}
}

func namedOptions(names []string) []Option {
	out := make([]Option, 0, len(names))
	for _, n := range names {
		out = append(out, Option{Label: n, Value: n})
	}
	return out
}

func notFoundReply() Reply { return menuReply(NotFoundMessage) }

func categoryPrompt(names []string) Reply {
	return Reply{Message: "Which category are you interested in?", Options: namedOptions(names)}
}

func subCategoryPrompt(category string, names []string) Reply {
	return Reply{
		Message: fmt.Sprintf("Great choice! Which type of %s are you looking for?", category),
		Options: namedOptions(names),
	}
}

func attributePrompt(a PendingAttribute) Reply {
	name := strings.ToLower(a.Name)
	if len(a.Options) == 0 {
		return Reply{Message: fmt.Sprintf("Please tell us your preferred %s.", name)}
	}
	return Reply{Message: fmt.Sprintf("Which %s would you like?", name), Options: namedOptions(a.Options)}
}

func invalidAnswerReply(a PendingAttribute, input string) Reply {
	r := attributePrompt(a)
	r.Message = fmt.Sprintf("%q is not available for %s. Please pick one of the options.", input, strings.ToLower(a.Name))
	return r
}

// confirmPrompt is sent when every attribute has an answer: the user confirms
// (or changes) the last one to get suggestions.
func confirmPrompt(a PendingAttribute, current string) Reply {
	r := attributePrompt(a)
	r.Message = fmt.Sprintf("Almost done! Please confirm your %s (you chose %s) to see matching products.", strings.ToLower(a.Name), current)
	return r
}

func showProductsPrompt(subCategory string) Reply {
	return Reply{
		Message: fmt.Sprintf("No further details needed for %s. Send any message to see the products.", subCategory),
		Options: []Option{{Label: "Show products", Value: CommandShowProducts}},
	}
}

func orderStatusReply(orderID string) Reply {
	return menuReply(fmt.Sprintf("Your order %s is in transit and should reach you within 3-5 business days. Anything else I can help with?", orderID))
}

func ticketReply(name, ticketID string) Reply {
	ref := ticketID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return menuReply(fmt.Sprintf("Thank you, %s. We have received your complaint (ticket %s) and our support team will contact you shortly.",
		cases.Title(language.English).String(strings.TrimSpace(name)), strings.ToUpper(ref)))
}

func invalidGrievanceReply(fields []string) Reply {
	return menuReply(fmt.Sprintf("We couldn't register your complaint. Please check: %s.", strings.Join(fields, ", ")))
}
