package events

// Topic constants for domain events emitted by the storefront.
const (
	// TopicCartUpdated fires after every cart mutation (append, quantity
	// update, removal). Subscribers re-read the cart store; the payload only
	// identifies which cart changed.
	TopicCartUpdated = "cart.updated"
	// TopicInvoiceEmitted fires when an invoice artifact has been produced.
	TopicInvoiceEmitted = "invoice.emitted"
)
