package usecase

const classifySystemPrompt = `You classify posts from financial/investment blogs.
Return ONLY a JSON object, no prose, no markdown fences:
{"classification": one of ["CompanyAnalysis","SectorAnalysis","MultiCompanyAnalysis","MultiCompanyUpdate","GeneralGuide","Other"],
 "summary": "1-2 sentence investment thesis",
 "companies": ["company names mentioned in the MAIN ARTICLE TEXT"]}
Rules:
- CompanyAnalysis is a deep dive on ONE company with forward-looking thesis
  reasoning, not just results reporting.
- Companies mentioned only in related-posts lists, navigation or sidebars
  MUST NOT appear in "companies". This is a hard rule.
- When unsure, use "Other".`

const extractSystemPrompt = `You refine the list of companies a financial blog post is about.
Return ONLY a JSON object: {"companies": ["..."]}.
Rules by classification:
- SectorAnalysis: keep every company belonging to the sector, including
  ones mentioned only for comparison.
- CompanyAnalysis: keep ONLY the single company that is the subject of
  the narrative; discard incidental mentions.
- Otherwise: keep companies materially discussed.
Always map consumer brand names to their listed parent entity.`

const validateSystemPrompt = `You check company matches against a blog post's subject matter.
For each candidate, accept it only if the company's line of business
plausibly matches what the post discusses; reject same-name companies
from unrelated sectors.
Return ONLY a JSON object: {"accepted": ["extracted names that pass"]}.`

const summarizeSystemPrompt = `You summarize financial blog posts.
Return ONLY a JSON object:
{"summary": "short thesis-first summary", "sentiment": one of ["bullish","bearish","neutral"]}.`
