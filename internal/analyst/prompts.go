package analyst

import "github.com/TobiSchelling/StockBrief/internal/section"

const sectionPrompt = `You are a senior equity analyst writing one section of a stock report on %s (%s) as of %s.

Section: %s
Focus: %s

Rules:
- Write in %s, in markdown. Do not add a top-level heading; use ### subheadings only.
- Base every number on the data below. If the data does not cover something, say so instead of guessing.
- Write the analysis directly. Do not describe what you are going to do or which tools you would use.
%s
Data:
%s`

const marketPrompt = `You are a senior market strategist writing the market overview section of a stock report as of %s.

Focus: %s

Rules:
- Write in %s, in markdown. Do not add a top-level heading; use ### subheadings only.
- Base every number on the data below. If the data does not cover something, say so instead of guessing.
- Write the analysis directly. Do not describe what you are going to do or which tools you would use.

Index data:
%s
Market news:
%s`

var focus = map[section.ID]string{
	section.PriceVolume: "price trend, support and resistance levels, moving averages, " +
		"trading volume patterns and how volume confirms or contradicts the price move.",
	section.InvestorTrading: "who is likely driving the recent trading: accumulation or distribution " +
		"visible in volume spikes, up-volume versus down-volume days and changes in participation.",
	section.CompanyStatus: "the company's current position: valuation signals from price levels, " +
		"recent performance against its range, and events in the news that affect fundamentals.",
	section.CompanyOverview: "what the company does, its main business lines, competitive position " +
		"and the structural drivers an investor should understand.",
	section.News: "the most important recent news items, what each means for the stock, " +
		"and whether the overall news flow is positive, negative or mixed.",
	section.MarketIndex: "the direction of the broad market indices, breadth and volatility, " +
		"and the macro themes behind the move.",
}
