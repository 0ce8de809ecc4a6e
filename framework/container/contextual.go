package container

// ContextualBuilder implements the fluent contextual binding API.
//
//	c.When("photo_controller").Needs("filesystem").Give("s3_filesystem")
type ContextualBuilder struct {
	container *Container
	concrete  string
	needs     string
}

// Needs specifies which dependency of the concrete service is rebound.
func (b *ContextualBuilder) Needs(service string) *ContextualBuilder {
	b.needs = service
	return b
}

// Give names the service the concrete one receives instead. It must be called
// before Build.
func (b *ContextualBuilder) Give(service string) error {
	return b.container.override(b.concrete, b.needs, service)
}

// GiveType is Give with the replacement named by its type.
//
//	c.When("order_service").Needs("email_service").GiveType("SMTPMailer") // -> "smtp_mailer"
func (b *ContextualBuilder) GiveType(typeName string) error {
	return b.Give(SnakeCase(typeName))
}
