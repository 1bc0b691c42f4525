// Package messages renders the pt-BR texts sent to passengers and drivers.
package messages

import (
	"fmt"

	"tripbot/internal/models"
	"tripbot/internal/tripbot/phoneutil"
	"tripbot/internal/tripbot/timeutil"
)

const (
	InvalidCode   = "⚠️ Código inválido. Por favor, confirme os 4 últimos dígitos do seu telefone."
	InvalidOption = "⚠️ Responda apenas uma das opções disponíveis."
)

// PassengerCountOptions maps menu answers to stored labels.
var PassengerCountOptions = map[string]string{
	"1": "1 pessoa",
	"2": "2 pessoas",
	"3": "3 pessoas",
	"4": "4 pessoas ou mais",
}

// LuggageOptions maps menu answers to stored labels.
var LuggageOptions = map[string]string{
	"1": "1 a 2 malas",
	"2": "2 a 3 malas",
	"3": "3 a 4 malas",
	"4": "4 malas ou mais",
	"5": "Não vou levar malas",
}

func orUnknown(v string) string {
	if v == "" {
		return "?"
	}
	return v
}

// PassengerTripConfirmation announces the trip on first contact.
func PassengerTripConfirmation(t models.Trip) string {
	return fmt.Sprintf("Olá, %s! Sua viagem foi confirmada:\n📅 Data: %s\n⏰ Horário: %s\n📍 Origem: %s\n🏁 Destino: %s",
		t.PassengerName, timeutil.FormatDate(t.Date), t.Time, t.Origin, t.Destination)
}

// PassengerCodeRequest asks the passenger for the last four digits.
func PassengerCodeRequest(t models.Trip) string {
	return fmt.Sprintf("🔎 *Confirme os 4 últimos dígitos do seu telefone:*\nOs últimos 4 dígitos são: %s",
		phoneutil.LastFour(t.PassengerPhone))
}

// PassengerReminder is the pre-trip reminder; lead is "1 hora", "30 minutos" or "10 minutos".
func PassengerReminder(t models.Trip, lead string) string {
	return fmt.Sprintf("⏰ *Lembrete de viagem*\n\nOlá %s, sua viagem está agendada para daqui a %s: %s às %s\n\n🚖 Motorista: %s - %s\n📍 Origem: %s\n🏁 Destino: %s\n👥 Passageiros: %s\n🧳 Malas: %s",
		t.PassengerName, lead, timeutil.FormatDate(t.Date), t.Time,
		t.DriverName, phoneutil.Format(t.DriverPhone), t.Origin, t.Destination,
		orUnknown(t.PassengerCount), orUnknown(t.Luggage))
}

// PassengerRatingRequest asks for the post-trip rating.
func PassengerRatingRequest(t models.Trip) string {
	return fmt.Sprintf("⭐ Olá, %s.\n\nEsperamos que sua viagem com %s ontem tenha ocorrido bem.\nFique à vontade para incluir sugestões para melhoria ou se houve qualquer incômodo.\nPor favor, avalie:\n1️⃣ Ótima\n2️⃣ Boa\n3️⃣ Tive problemas na viagem",
		t.PassengerName, t.DriverName)
}

const PassengerCountPrompt = "✅ Confirmação realizada com sucesso!\n\nAgora precisamos confirmar algumas informações.\nQuantas pessoas irão viajar?\n1️⃣ 1 pessoa\n2️⃣ 2 pessoas\n3️⃣ 3 pessoas\n4️⃣ 4 pessoas ou mais"

const LuggagePrompt = "Agora informe a quantidade de malas:\n1️⃣ 1 mala\n2️⃣ 2 malas\n3️⃣ 3 malas\n4️⃣ 4 malas ou mais\n5️⃣ Não vou levar malas"

const PassengerDataThanks = "✅ Obrigado por confirmar seus dados."

// PassengerRatingThanks answers a passenger rating of 1, 2 or 3.
func PassengerRatingThanks(t models.Trip, rating int) string {
	switch rating {
	case 1:
		return fmt.Sprintf("⭐ Agradecemos pela confiança, %s! Ficamos felizes em saber que sua experiência foi positiva.", t.PassengerName)
	case 2:
		return fmt.Sprintf("🙂 Obrigado pelo feedback, %s. Vamos melhorar onde for necessário.", t.PassengerName)
	default:
		return fmt.Sprintf("⚠️ Lamentamos que tenha tido problemas, %s. Sua opinião será registrada e vamos trabalhar para melhorar.", t.PassengerName)
	}
}

// DriverAssignment notifies the driver of a new trip.
func DriverAssignment(t models.Trip) string {
	return fmt.Sprintf("Nova viagem atribuída\n\nOlá, %s!\nVocê foi designado para uma nova corrida:\n\n📅 Data: %s\n⏰ Horário: %s\n📍 Origem: %s\n🏁 Destino: %s",
		t.DriverName, timeutil.FormatDate(t.Date), t.Time, t.Origin, t.Destination)
}

// DriverCodeRequest asks the driver to accept with the last four digits.
func DriverCodeRequest(t models.Trip) string {
	return fmt.Sprintf("✅ Para confirmar, responda com os 4 últimos dígitos do seu telefone:\nOs últimos 4 dígitos são: %s",
		phoneutil.LastFour(t.DriverPhone))
}

// DriverAccepted confirms the acceptance.
func DriverAccepted(t models.Trip) string {
	return fmt.Sprintf("✅ Confirmação recebida! Obrigado, %s!\nSua viagem foi confirmada:\n\n📅 Data: %s\n⏰ Horário: %s\n📍 Origem: %s\n🏁 Destino: %s\n\n*Lembre-se de chegar com pelo menos 10 minutos de antecedência.*",
		t.DriverName, timeutil.FormatDate(t.Date), t.Time, t.Origin, t.Destination)
}

const DriverAlreadyConfirmed = "⚠️ Desculpe, esta viagem já foi confirmada por outro motorista."

// DriverReminder12h is sent between 12 h and 1 h before departure.
func DriverReminder12h(t models.Trip) string {
	return fmt.Sprintf("⏰ Lembrete de viagem\n\nOlá %s, sua corrida com o cliente %s, está agendada às %s de %s.\n\nPrepare-se e esteja no local combinado com pelo menos 10 minutos de antecedência.\nBoa rota e bom trabalho!",
		t.DriverName, t.PassengerName, t.Time, timeutil.FormatDate(t.Date))
}

// DriverReminder1h is sent in the last hour before departure.
func DriverReminder1h(t models.Trip) string {
	return fmt.Sprintf("⏰ Lembrete de viagem\n\nOlá, %s, sua corrida com o cliente %s, está agendada às %s de %s. Falta *1 hora* para a viagem.\n\nPrepare-se e esteja no local combinado com pelo menos 10 minutos de antecedência.\n\nLembre-se de compartilhar a localização conosco antes de iniciar a viagem.\n\nBoa rota e bom trabalho!",
		t.DriverName, t.PassengerName, t.Time, timeutil.FormatDate(t.Date))
}

// DriverDistanceRequest opens the post-trip data collection.
func DriverDistanceRequest(t models.Trip) string {
	return fmt.Sprintf("📋Olá, %s.\n\nPrecisamos coletar algumas informações da viagem no dia %s às %s.\n\nPor favor, informe a *quilometragem percorrida* (apenas números, ex: 25):",
		t.DriverName, timeutil.FormatDate(t.Date), t.Time)
}

const (
	DriverFarePrompt     = "✅ Quilometragem registrada! Agora informe o valor final da corrida (apenas números, ex: 50):"
	DriverDurationPrompt = "✅ Valor registrado! E qual foi o *tempo de duração* total da viagem (em minutos, ex: 45):"
	DriverNotePrompt     = "✅ Duração registrada! Por fim, adicione uma *justificativa* ou observação (ou responda \"ok\" se não há):"
	InvalidDistance      = "⚠️ Entrada inválida. Por favor, informe a quilometragem (Ex: 25)"
	InvalidFare          = "⚠️ Entrada inválida. Por favor, informe o valor (Ex: 50)"
	InvalidDuration      = "⚠️ Entrada inválida. Por favor, informe o tempo em *minutos* (Ex: 45)"
)

// DriverCompletionThanks closes the data collection.
func DriverCompletionThanks(t models.Trip) string {
	return fmt.Sprintf("✅ Dados da viagem registrados com sucesso, Obrigado, %s!", t.DriverName)
}

// DriverRatingRequest asks the driver how the trip went.
func DriverRatingRequest(t models.Trip) string {
	return fmt.Sprintf("Olá, %s.\n\nA viagem do dia %s às %s foi concluída.\nSua resposta é importante para que possamos melhorar a qualidade do serviço e entender qualquer transtorno.\n\nAvalie como foi a corrida:\n1️⃣ Sem problemas\n2️⃣ Ocorreram imprevistos leves\n3️⃣ Ocorreram problemas relevantes",
		t.DriverName, timeutil.FormatDate(t.Date), t.Time)
}

// DriverRatingThanks answers a driver rating of 1, 2 or 3.
func DriverRatingThanks(t models.Trip, rating int) string {
	switch rating {
	case 1:
		return fmt.Sprintf("🌟 Agradecemos pelo retorno, %s. Ficamos felizes em saber que ocorreu tudo bem durante a viagem.", t.DriverName)
	case 2:
		return fmt.Sprintf("🙂 Obrigado por compartilhar conosco, %s. Sua observação foi registrada e será analisada para possíveis melhorias.", t.DriverName)
	default:
		return fmt.Sprintf("⚠️ Obrigado por compartilhar conosco, %s. Sua observação foi registrada para que possamos melhorar a qualidade do serviço.", t.DriverName)
	}
}
