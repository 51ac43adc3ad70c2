package bot

// MessageKind identifies a fixed user-facing reply.
type MessageKind int

const (
	MessageHelp MessageKind = iota
	MessageUnknownPlace
	MessageVoiceTooLong
	MessageUnsupported
)

// Messages holds the fixed replies, keyed by outcome.
var Messages = map[MessageKind]string{
	MessageHelp: "Я расскажу о текущей погоде для населенного пункта.\n\n" +
		"Я могу ответить на:\n" +
		"- Текстовое сообщение с названием населенного пункта.\n" +
		"- Голосовое сообщение с названием населенного пункта.\n" +
		"- Сообщение с геопозицией.",
	MessageUnknownPlace: "Я не знаю какая погода в этом месте.",
	MessageVoiceTooLong: "Голосовое сообщение должно быть короче 30 секунд",
	MessageUnsupported: "Я не могу ответить на такой тип сообщения.\n" +
		"Но могу ответить на:\n" +
		"- Текстовое сообщение с названием населенного пункта.\n" +
		"- Голосовое сообщение с названием населенного пункта.\n" +
		"- Сообщение с геопозицией.",
}

func message(kind MessageKind) string {
	return Messages[kind]
}
