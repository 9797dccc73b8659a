package i18n

var ptBRMessages = map[Code]string{
	CodeInternal:                     "Algo deu errado. Tente novamente.",
	CodeIdentityReferenceInvalid:     "Informe um id de conta ou uma origem e um id externo.",
	CodeEventNameEmpty:               "O evento precisa de um nome.",
	CodeEventGameNameEmpty:           "O evento precisa de um jogo.",
	CodeEventPlanUpdateEmpty:         "Diga o que mudar: data, local ou nome.",
	CodeEventInvalidStatusTransition: "Este evento está {{.Status}} e não pode passar para {{.Target}}.",
	CodeEventCancelled:               "Este evento foi cancelado.",
	CodeEventNotFound:                "Não encontramos esse evento.",
	CodeEventViewScopeInvalid:        "Escolha a visão de membro ou de canal; a visão de canal precisa de um canal.",
	CodeEventHostRequired:            "Somente um anfitrião pode fazer isso.",
	CodeMembershipNotFound:           "Nenhum convite ou participação correspondente foi encontrado.",
	CodeMembershipNotAccepted:        "Aceite o convite primeiro.",
	CodeMembershipExists:             "{{.Member}} já foi convidado para este evento.",
	CodeMembershipLastHost:           "O último anfitrião não pode sair; nomeie outro anfitrião antes.",
	CodeMembershipUnreachable:        "{{.Member}} não está neste canal.",
}
